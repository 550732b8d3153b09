// Package handler implements the HTTP surface: template and demand
// CRUD, the form view, and the Kanban board. Handlers delegate all
// non-trivial computation to the forms, deadline, and board packages.
package handler

import (
	"net/http"

	"github.com/fbastos/demandboard/internal/forms"
	"github.com/fbastos/demandboard/internal/store"
	"github.com/fbastos/demandboard/internal/types"
)

// TemplateHandler serves template CRUD and the dynamic form view.
type TemplateHandler struct {
	store *store.Store
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(s *store.Store) *TemplateHandler {
	return &TemplateHandler{store: s}
}

type templateRequest struct {
	Name                string                  `json:"name"`
	AverageDurationDays int                     `json:"average_duration_days"`
	Tabs                []types.Tab             `json:"tabs"`
	Fields              []types.FieldDefinition `json:"fields"`
	Tasks               []types.TaskDefinition  `json:"tasks"`
}

// validateFields enforces the structural invariants of a template's
// field list: unique ids (group children included), at least one tab
// per field on templates with tabs, and single-level group nesting.
func validateFields(tpl *types.Template) (code, message string) {
	seen := make(map[string]bool)
	checkID := func(id string) bool {
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
		return true
	}
	hasTabs := len(tpl.Tabs) > 0

	for i := range tpl.Fields {
		f := &tpl.Fields[i]
		if !checkID(f.FieldID) {
			return "DUPLICATE_FIELD", "field ids must be unique and non-empty: " + f.FieldID
		}
		if hasTabs && len(f.TabIDs) == 0 {
			return "FIELD_WITHOUT_TAB", "field must belong to at least one tab: " + f.FieldID
		}
		if !f.IsGroup() && len(f.Children) > 0 {
			return "INVALID_CHILDREN", "only group fields can have children: " + f.FieldID
		}
		for j := range f.Children {
			child := &f.Children[j]
			if child.IsGroup() {
				return "NESTED_GROUP", "groups cannot be nested: " + child.FieldID
			}
			if !checkID(child.FieldID) {
				return "DUPLICATE_FIELD", "field ids must be unique and non-empty: " + child.FieldID
			}
		}
	}
	return "", ""
}

// CreateTemplate handles POST /v1/templates.
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "name is required")
		return
	}

	tpl := &types.Template{
		Name:                req.Name,
		AverageDurationDays: req.AverageDurationDays,
		Tabs:                req.Tabs,
		Fields:              req.Fields,
		Tasks:               req.Tasks,
	}
	if code, msg := validateFields(tpl); code != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}
	if err := h.store.CreateTemplate(r.Context(), tpl); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// GetTemplate handles GET /v1/templates/{id}.
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// ListTemplates handles GET /v1/templates.
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := h.store.ListTemplates(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if tpls == nil {
		tpls = []types.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": tpls})
}

// UpdateTemplate handles PATCH /v1/templates/{id}.
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.Name != "" {
		tpl.Name = req.Name
	}
	if req.AverageDurationDays > 0 {
		tpl.AverageDurationDays = req.AverageDurationDays
	}
	if req.Tabs != nil {
		tpl.Tabs = req.Tabs
	}
	if req.Fields != nil {
		tpl.Fields = req.Fields
	}
	if req.Tasks != nil {
		tpl.Tasks = req.Tasks
	}
	if code, msg := validateFields(tpl); code != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	if err := h.store.UpdateTemplate(r.Context(), tpl); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// DeleteTemplate handles DELETE /v1/templates/{id}.
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteTemplate(r.Context(), id); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type formViewRequest struct {
	TabID  string       `json:"tab_id"`
	Values forms.Values `json:"values"`
}

type formViewResponse struct {
	TabID         string                  `json:"tab_id"`
	Tabs          []types.Tab             `json:"tabs"`
	Fields        []types.FieldDefinition `json:"fields"`
	ReplicaCounts map[string]int          `json:"replica_counts"`
}

// FormView handles POST /v1/templates/{id}/form: the render-cycle
// computation. Given a tab and the current draft values it returns the
// ordered visible fields and the replica count of each group.
func (h *TemplateHandler) FormView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), id)
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	var req formViewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	tabs := forms.TabsOrDefault(tpl)
	tabID := req.TabID
	if tabID == "" {
		tabID = tabs[0].ID
	}

	counts, values := forms.InitializeReplicas(tpl.Fields, req.Values)
	fields := forms.OrderedVisibleFields(tpl.Fields, tabID, values)
	if fields == nil {
		fields = []types.FieldDefinition{}
	}

	writeJSON(w, http.StatusOK, formViewResponse{
		TabID:         tabID,
		Tabs:          tabs,
		Fields:        fields,
		ReplicaCounts: counts,
	})
}
