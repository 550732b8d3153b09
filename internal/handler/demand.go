package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fbastos/demandboard/internal/activity"
	"github.com/fbastos/demandboard/internal/deadline"
	"github.com/fbastos/demandboard/internal/event"
	"github.com/fbastos/demandboard/internal/forms"
	"github.com/fbastos/demandboard/internal/store"
	"github.com/fbastos/demandboard/internal/types"
)

// DemandHandler serves demand CRUD, task completion, and the replica
// count command.
type DemandHandler struct {
	store    *store.Store
	activity activity.Store
	now      func() time.Time
}

// NewDemandHandler creates a DemandHandler.
func NewDemandHandler(s *store.Store, act activity.Store) *DemandHandler {
	return &DemandHandler{store: s, activity: act, now: time.Now}
}

type createDemandRequest struct {
	TemplateID           string       `json:"template_id"`
	OwnerID              string       `json:"owner_id"`
	ExpectedDurationDays int          `json:"expected_duration_days"`
	FieldValues          forms.Values `json:"field_values"`
}

// CreateDemand handles POST /v1/demands. The demand's name, forecast
// date, task chain, and seeded field values all derive from the
// template.
func (h *DemandHandler) CreateDemand(w http.ResponseWriter, r *http.Request) {
	var req createDemandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), req.TemplateID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	for i := range tpl.Fields {
		f := &tpl.Fields[i]
		if f.RequiredOnCreate && !f.IsGroup() {
			if v, ok := forms.ResolveValue(req.FieldValues, f.FieldID); !ok || v == "" {
				writeError(w, http.StatusBadRequest, "MISSING_FIELD", "required field: "+f.FieldID)
				return
			}
		}
	}

	now := h.now()
	expected := req.ExpectedDurationDays
	if expected <= 0 {
		expected = tpl.AverageDurationDays
	}

	_, values := forms.InitializeReplicas(tpl.Fields, req.FieldValues)

	d := &types.Demand{
		TemplateID:           tpl.ID,
		Name:                 forms.ComplementName(tpl, values),
		Status:               types.StatusCreated,
		OwnerID:              req.OwnerID,
		ExpectedDurationDays: expected,
		FieldValues:          values,
		TaskStatuses:         seedTasks(tpl),
		CreatedAt:            now,
		ForecastAt:           now.AddDate(0, 0, expected),
	}
	d.OnTime = deadline.OnTime(now, d.CreatedAt, nil, expected)

	if err := h.store.CreateDemand(r.Context(), d); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	recordEvent(r.Context(), event.NewDemandCreated(d))
	writeJSON(w, http.StatusCreated, d)
}

func seedTasks(tpl *types.Template) []types.TaskStatus {
	statuses := make([]types.TaskStatus, len(tpl.Tasks))
	for i, t := range tpl.Tasks {
		statuses[i] = types.TaskStatus{TaskID: t.TaskID, OwnerID: t.DefaultOwnerID}
	}
	return statuses
}

// GetDemand handles GET /v1/demands/{id}.
func (h *DemandHandler) GetDemand(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListDemands handles GET /v1/demands.
func (h *DemandHandler) ListDemands(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.ListDemands(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if ds == nil {
		ds = []types.Demand{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"demands": ds})
}

type updateDemandRequest struct {
	OwnerID              *string      `json:"owner_id,omitempty"`
	ExpectedDurationDays *int         `json:"expected_duration_days,omitempty"`
	FieldValues          forms.Values `json:"field_values,omitempty"`
}

// UpdateDemand handles PATCH /v1/demands/{id}. Editing values
// recomputes the display name; editing the expected duration shifts
// the forecast. The on-time snapshot refreshes on every write.
func (h *DemandHandler) UpdateDemand(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	var req updateDemandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), d.TemplateID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	if req.OwnerID != nil {
		d.OwnerID = *req.OwnerID
	}
	if req.ExpectedDurationDays != nil && *req.ExpectedDurationDays > 0 {
		d.ExpectedDurationDays = *req.ExpectedDurationDays
		d.ForecastAt = d.CreatedAt.AddDate(0, 0, d.ExpectedDurationDays)
	}
	if req.FieldValues != nil {
		d.FieldValues = req.FieldValues.Clone()
		d.Name = forms.ComplementName(tpl, d.FieldValues)
	}
	d.OnTime = deadline.OnTime(h.now(), d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)

	if err := h.store.UpdateDemand(r.Context(), d); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	recordEvent(r.Context(), event.NewDemandUpdated(d))
	writeJSON(w, http.StatusOK, d)
}

// DeleteDemand handles DELETE /v1/demands/{id}.
func (h *DemandHandler) DeleteDemand(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if err := h.store.DeleteDemand(r.Context(), id); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	recordEvent(r.Context(), event.NewDemandDeleted(d))
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status types.DemandStatus `json:"status"`
}

// ChangeStatus handles POST /v1/demands/{id}/status — the Kanban drag.
// Moving into Finished stamps the finish time and snapshots on-time;
// moving out clears it.
func (h *DemandHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status: "+string(req.Status))
		return
	}

	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if d.Status == req.Status {
		writeJSON(w, http.StatusOK, d)
		return
	}

	from := d.Status
	now := h.now()
	d.Status = req.Status
	if req.Status == types.StatusFinished {
		d.FinishedAt = &now
	} else {
		d.FinishedAt = nil
	}
	d.OnTime = deadline.OnTime(now, d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)

	if err := h.store.UpdateDemand(r.Context(), d); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	recordEvent(r.Context(), event.NewDemandStatusChanged(d, from))
	writeJSON(w, http.StatusOK, d)
}

type taskRequest struct {
	OwnerID string `json:"owner_id,omitempty"`
}

// CompleteTask handles POST /v1/demands/{id}/tasks/{taskID}/complete.
// Completing the last open task finishes the demand; completing any
// task on a freshly created demand moves it to in progress.
func (h *DemandHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.setTaskDone(w, r, true)
}

// ReopenTask handles POST /v1/demands/{id}/tasks/{taskID}/reopen.
// Reopening a task on a finished demand returns it to in progress.
func (h *DemandHandler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	h.setTaskDone(w, r, false)
}

func (h *DemandHandler) setTaskDone(w http.ResponseWriter, r *http.Request, done bool) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TASK", "task id is required")
		return
	}
	// Body is optional: an empty request completes with the default owner.
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	ts := d.TaskStatus(taskID)
	if ts == nil {
		writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "no such task on demand: "+taskID)
		return
	}
	// Repeating the current state is a no-op; in particular, completing
	// an already-done task must not restamp DoneAt or FinishedAt.
	if ts.Done == done {
		writeJSON(w, http.StatusOK, d)
		return
	}

	tpl, err := h.store.GetTemplate(r.Context(), d.TemplateID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	taskName := taskID
	for _, t := range tpl.Tasks {
		if t.TaskID == taskID {
			taskName = t.Name
			break
		}
	}

	now := h.now()
	ts.Done = done
	if done {
		ts.DoneAt = &now
		if req.OwnerID != "" {
			ts.OwnerID = req.OwnerID
		}
	} else {
		ts.DoneAt = nil
	}

	switch {
	case done && d.AllTasksDone():
		d.Status = types.StatusFinished
		d.FinishedAt = &now
	case done && d.Status == types.StatusCreated:
		d.Status = types.StatusInProgress
	case !done && d.Status == types.StatusFinished:
		d.Status = types.StatusInProgress
		d.FinishedAt = nil
	}
	d.OnTime = deadline.OnTime(now, d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)

	if err := h.store.UpdateDemand(r.Context(), d); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if done {
		recordEvent(r.Context(), event.NewTaskCompleted(d, taskID, taskName))
	} else {
		recordEvent(r.Context(), event.NewTaskReopened(d, taskID, taskName))
	}
	writeJSON(w, http.StatusOK, d)
}

type changeReplicasRequest struct {
	GroupFieldID string `json:"group_field_id"`
	Count        int    `json:"count"`
}

// ChangeReplicas handles POST /v1/demands/{id}/replicas: grows or
// shrinks a repeatable group on the stored draft.
func (h *DemandHandler) ChangeReplicas(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req changeReplicasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	d, err := h.store.GetDemand(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), d.TemplateID)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	group := tpl.FieldByID(req.GroupFieldID)
	if group == nil || !group.IsGroup() {
		writeError(w, http.StatusBadRequest, "NOT_A_GROUP", "not a group field: "+req.GroupFieldID)
		return
	}

	values := forms.Values(d.FieldValues)
	oldCount := forms.DetectReplicaCount(group, values)
	d.FieldValues = forms.ChangeReplicaCount(group, oldCount, req.Count, values)
	d.Name = forms.ComplementName(tpl, d.FieldValues)
	d.OnTime = deadline.OnTime(h.now(), d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)

	if err := h.store.UpdateDemand(r.Context(), d); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	recordEvent(r.Context(), event.NewDemandUpdated(d))
	writeJSON(w, http.StatusOK, d)
}

// Activity handles GET /v1/demands/{id}/activity.
func (h *DemandHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	opts := activity.DefaultQueryOptions()
	opts.Limit = parseLimit(r, opts.Limit, 500)
	entries, err := h.activity.QueryByDemand(r.Context(), id, opts)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
