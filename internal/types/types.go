// Package types provides the shared data model for templates and demands.
// Templates and demands are persisted as rows with JSON columns for the
// nested documents (tabs, field definitions, field values, task statuses),
// so every struct here carries JSON tags.
package types

import (
	"encoding/json"
	"time"
)

// FieldType enumerates the kinds of data-entry fields a template can declare.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDecimal  FieldType = "decimal"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
	FieldDropdown FieldType = "dropdown"
	FieldGroup    FieldType = "group"
)

// ConditionOperator enumerates visibility-condition operators.
type ConditionOperator string

const (
	OpEquals    ConditionOperator = "equals"
	OpNotEquals ConditionOperator = "notEquals"
	OpIsFilled  ConditionOperator = "isFilled"
	OpIsEmpty   ConditionOperator = "isEmpty"
)

// VisibilityCondition makes a field's display depend on another field's
// current value. Only meaningful on non-group fields.
type VisibilityCondition struct {
	SourceFieldID   string            `json:"source_field_id"`
	Operator        ConditionOperator `json:"operator"`
	ComparisonValue string            `json:"comparison_value,omitempty"`
}

// Tab is a named subdivision of a template's fields.
type Tab struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// FieldDefinition declares a single data-entry point on a template.
// A field of type "group" carries child definitions exactly one level
// deep; children are never themselves groups.
type FieldDefinition struct {
	FieldID          string               `json:"field_id"`
	Name             string               `json:"name"`
	Type             FieldType            `json:"type"`
	RequiredOnCreate bool                 `json:"required_on_create"`
	ComplementsName  bool                 `json:"complements_name"`
	TabIDs           []string             `json:"tab_ids"`
	TabOrder         map[string]int       `json:"tab_order,omitempty"`
	Options          []string             `json:"options,omitempty"`
	Visibility       *VisibilityCondition `json:"visibility,omitempty"`

	// Group-only.
	Children            []FieldDefinition `json:"children,omitempty"`
	DefaultReplicaCount int               `json:"default_replica_count,omitempty"`
}

// IsGroup reports whether the field is a repeatable group.
func (f *FieldDefinition) IsGroup() bool { return f.Type == FieldGroup }

// TaskDefinition is one link in a template's task chain.
type TaskDefinition struct {
	TaskID         string `json:"task_id"`
	Name           string `json:"name"`
	Order          int    `json:"order"`
	DefaultOwnerID string `json:"default_owner_id,omitempty"`
}

// Template is a reusable definition of a form and a task chain.
type Template struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	AverageDurationDays int               `json:"average_duration_days"`
	Tabs                []Tab             `json:"tabs"`
	Fields              []FieldDefinition `json:"fields"`
	Tasks               []TaskDefinition  `json:"tasks"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// FieldByID returns the field definition with the given id, searching
// group children as well. Returns nil if not found.
func (t *Template) FieldByID(fieldID string) *FieldDefinition {
	for i := range t.Fields {
		if t.Fields[i].FieldID == fieldID {
			return &t.Fields[i]
		}
		for j := range t.Fields[i].Children {
			if t.Fields[i].Children[j].FieldID == fieldID {
				return &t.Fields[i].Children[j]
			}
		}
	}
	return nil
}

// DemandStatus is the Kanban column a demand sits in.
type DemandStatus string

const (
	StatusCreated    DemandStatus = "created"
	StatusInProgress DemandStatus = "in_progress"
	StatusFinished   DemandStatus = "finished"
)

// Valid reports whether s is a known demand status.
func (s DemandStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

// TaskStatus tracks completion of one template task on a demand.
// OwnerID, when set, overrides the task definition's default owner.
type TaskStatus struct {
	TaskID  string     `json:"task_id"`
	Done    bool       `json:"done"`
	OwnerID string     `json:"owner_id,omitempty"`
	DoneAt  *time.Time `json:"done_at,omitempty"`
}

// Demand is a concrete workflow instance created from a template.
//
// FieldValues is the legacy key-encoded value map: plain field id for
// non-group fields, "<childID>__<replicaIndex>" for group children.
// OnTime is a snapshot taken at write time; display paths recompute it.
type Demand struct {
	ID                   string            `json:"id"`
	TemplateID           string            `json:"template_id"`
	Name                 string            `json:"name"`
	Status               DemandStatus      `json:"status"`
	OwnerID              string            `json:"owner_id"`
	ExpectedDurationDays int               `json:"expected_duration_days"`
	FieldValues          map[string]string `json:"field_values"`
	TaskStatuses         []TaskStatus      `json:"task_statuses"`
	CreatedAt            time.Time         `json:"created_at"`
	ForecastAt           time.Time         `json:"forecast_at"`
	FinishedAt           *time.Time        `json:"finished_at,omitempty"`
	OnTime               bool              `json:"on_time"`
}

// TaskStatus returns the status entry for the given task id, or nil.
func (d *Demand) TaskStatus(taskID string) *TaskStatus {
	for i := range d.TaskStatuses {
		if d.TaskStatuses[i].TaskID == taskID {
			return &d.TaskStatuses[i]
		}
	}
	return nil
}

// AllTasksDone reports whether every task on the demand is complete.
// A demand with no tasks is never considered auto-completable.
func (d *Demand) AllTasksDone() bool {
	if len(d.TaskStatuses) == 0 {
		return false
	}
	for i := range d.TaskStatuses {
		if !d.TaskStatuses[i].Done {
			return false
		}
	}
	return true
}

// MustJSON marshals v, panicking on failure. For payloads built from
// structs defined in this module, marshaling cannot fail.
func MustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
