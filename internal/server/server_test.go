package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbastos/demandboard/internal/activity"
	"github.com/fbastos/demandboard/internal/event"
	"github.com/fbastos/demandboard/internal/handler"
	"github.com/fbastos/demandboard/internal/store"
	"github.com/fbastos/demandboard/internal/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	act := activity.NewMemoryStore()
	handler.SetRecorder(event.NewActivityRecorder(act))
	t.Cleanup(func() { handler.SetRecorder(nil) })

	srv := httptest.NewServer(Router(Config{
		Store:    st,
		Activity: act,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createTestTemplate(t *testing.T, srv *httptest.Server) types.Template {
	t.Helper()
	body := map[string]any{
		"name":                  "Matrícula",
		"average_duration_days": 7,
		"tabs": []map[string]any{
			{"id": "dados", "name": "Dados Gerais", "order": 0},
		},
		"fields": []map[string]any{
			{
				"field_id":           "aluno",
				"name":               "Aluno",
				"type":               "text",
				"required_on_create": true,
				"complements_name":   true,
				"tab_ids":            []string{"dados"},
			},
			{
				"field_id": "possui_bolsa",
				"name":     "Possui bolsa?",
				"type":     "dropdown",
				"options":  []string{"sim", "nao"},
				"tab_ids":  []string{"dados"},
			},
			{
				"field_id": "percentual_bolsa",
				"name":     "Percentual da bolsa",
				"type":     "number",
				"tab_ids":  []string{"dados"},
				"visibility": map[string]any{
					"source_field_id":  "possui_bolsa",
					"operator":         "equals",
					"comparison_value": "sim",
				},
			},
		},
		"tasks": []map[string]any{
			{"task_id": "conferir", "name": "Conferir documentos", "order": 0},
			{"task_id": "aprovar", "name": "Aprovar financeiro", "order": 1},
		},
	}

	var tpl types.Template
	resp := doJSON(t, srv, http.MethodPost, "/v1/templates", body, &tpl)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, tpl.ID)
	return tpl
}

func TestTemplateCRUD(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var got types.Template
	resp := doJSON(t, srv, http.MethodGet, "/v1/templates/"+tpl.ID, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Matrícula", got.Name)
	assert.Len(t, got.Fields, 3)

	resp = doJSON(t, srv, http.MethodPatch, "/v1/templates/"+tpl.ID,
		map[string]any{"name": "Rematrícula"}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rematrícula", got.Name)

	var list struct {
		Templates []types.Template `json:"templates"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/v1/templates", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Templates, 1)

	resp = doJSON(t, srv, http.MethodDelete, "/v1/templates/"+tpl.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/v1/templates/"+tpl.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTemplateValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/templates", map[string]any{
		"name": "Dup",
		"fields": []map[string]any{
			{"field_id": "a", "name": "A", "type": "text"},
			{"field_id": "a", "name": "A again", "type": "text"},
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDemandLifecycle(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var d types.Demand
	resp := doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"owner_id":     "maria",
		"field_values": map[string]string{"aluno": "Ana Souza"},
	}, &d)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "Matrícula - Ana Souza", d.Name)
	assert.Equal(t, types.StatusCreated, d.Status)
	assert.Equal(t, 7, d.ExpectedDurationDays)
	assert.True(t, d.OnTime)
	assert.True(t, d.ForecastAt.Equal(d.CreatedAt.AddDate(0, 0, 7)))
	require.Len(t, d.TaskStatuses, 2)

	// Completing the first task moves the demand to in_progress.
	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/conferir/complete", nil, &d)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusInProgress, d.Status)
	assert.True(t, d.TaskStatuses[0].Done)

	// Completing the last task finishes the demand.
	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/aprovar/complete", nil, &d)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusFinished, d.Status)
	require.NotNil(t, d.FinishedAt)

	// Reopening a task pulls it back to in_progress and clears FinishedAt.
	// Decode into a zero value: finished_at is omitempty and would
	// otherwise survive from the previous response.
	var reopened types.Demand
	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/aprovar/reopen", nil, &reopened)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusInProgress, reopened.Status)
	assert.Nil(t, reopened.FinishedAt)
}

func TestCompleteTaskIdempotent(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var d types.Demand
	doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{"aluno": "Ana"},
	}, &d)
	doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/conferir/complete", nil, nil)
	resp := doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/aprovar/complete", nil, &d)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, types.StatusFinished, d.Status)
	require.NotNil(t, d.FinishedAt)
	require.NotNil(t, d.TaskStatuses[1].DoneAt)
	finishedAt := *d.FinishedAt
	doneAt := *d.TaskStatuses[1].DoneAt

	// Completing a task that is already done must not shift the finish
	// or completion timestamps.
	var again types.Demand
	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/aprovar/complete", nil, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusFinished, again.Status)
	require.NotNil(t, again.FinishedAt)
	assert.True(t, again.FinishedAt.Equal(finishedAt))
	require.NotNil(t, again.TaskStatuses[1].DoneAt)
	assert.True(t, again.TaskStatuses[1].DoneAt.Equal(doneAt))
}

func TestDemandRequiredField(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	resp := doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDemandStatusChange(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var d types.Demand
	doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{"aluno": "Bruno"},
	}, &d)

	resp := doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/status",
		map[string]any{"status": "finished"}, &d)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusFinished, d.Status)
	require.NotNil(t, d.FinishedAt)

	// Fresh destination: finished_at is omitempty and a stale pointer
	// from the previous decode would mask the cleared state.
	var back types.Demand
	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/status",
		map[string]any{"status": "in_progress"}, &back)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.StatusInProgress, back.Status)
	assert.Nil(t, back.FinishedAt)

	resp = doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/status",
		map[string]any{"status": "bogus"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFormViewVisibility(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var view struct {
		Fields []types.FieldDefinition `json:"fields"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/v1/templates/"+tpl.ID+"/form", map[string]any{
		"tab_id": "dados",
		"values": map[string]string{"possui_bolsa": "nao"},
	}, &view)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ids := fieldIDs(view.Fields)
	assert.NotContains(t, ids, "percentual_bolsa")

	resp = doJSON(t, srv, http.MethodPost, "/v1/templates/"+tpl.ID+"/form", map[string]any{
		"tab_id": "dados",
		"values": map[string]string{"possui_bolsa": "sim"},
	}, &view)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, fieldIDs(view.Fields), "percentual_bolsa")
}

func fieldIDs(fields []types.FieldDefinition) []string {
	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.FieldID
	}
	return ids
}

func TestBoardColumns(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var ana, bruno types.Demand
	doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{"aluno": "Ana"},
	}, &ana)
	doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{"aluno": "Bruno"},
	}, &bruno)
	doJSON(t, srv, http.MethodPost, "/v1/demands/"+bruno.ID+"/status",
		map[string]any{"status": "finished"}, &bruno)

	var body struct {
		Created    []types.Demand `json:"created"`
		InProgress []types.Demand `json:"in_progress"`
		Finished   []types.Demand `json:"finished"`
	}
	resp := doJSON(t, srv, http.MethodGet, "/v1/board", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, body.Created, 1)
	assert.Equal(t, ana.ID, body.Created[0].ID)
	require.Len(t, body.Finished, 1)
	assert.Equal(t, bruno.ID, body.Finished[0].ID)
	assert.Empty(t, body.InProgress)
}

func TestDemandActivityFeed(t *testing.T) {
	srv := newTestServer(t)
	tpl := createTestTemplate(t, srv)

	var d types.Demand
	doJSON(t, srv, http.MethodPost, "/v1/demands", map[string]any{
		"template_id":  tpl.ID,
		"field_values": map[string]string{"aluno": "Ana"},
	}, &d)
	doJSON(t, srv, http.MethodPost, "/v1/demands/"+d.ID+"/tasks/conferir/complete", nil, nil)

	var feed struct {
		Entries []activity.Entry `json:"entries"`
	}
	resp := doJSON(t, srv, http.MethodGet, "/v1/demands/"+d.ID+"/activity", nil, &feed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, feed.Entries)
}
