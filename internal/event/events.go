// Package event defines demand lifecycle events and their recording.
// Handlers record events after a successful store write; recorded
// events feed the activity log and the realtime push channel.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fbastos/demandboard/internal/types"
)

// Event types emitted by the demand handlers.
const (
	TypeDemandCreated       = "demand_created"
	TypeDemandUpdated       = "demand_updated"
	TypeDemandStatusChanged = "demand_status_changed"
	TypeDemandDeleted       = "demand_deleted"
	TypeTaskCompleted       = "task_completed"
	TypeTaskReopened        = "task_reopened"
)

// DomainEvent carries the canonical shape of every demand event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	DemandID   string          `json:"demand_id"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload"`
}

func newEvent(eventType, demandID, summary string, payload any) DomainEvent {
	return DomainEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now(),
		DemandID:   demandID,
		Summary:    summary,
		Payload:    types.MustJSON(payload),
	}
}

// DemandPayload is the common payload for demand-level events.
type DemandPayload struct {
	DemandID   string             `json:"demand_id"`
	TemplateID string             `json:"template_id"`
	Name       string             `json:"name"`
	Status     types.DemandStatus `json:"status"`
	OwnerID    string             `json:"owner_id,omitempty"`
	ForecastAt time.Time          `json:"forecast_at"`
}

func demandPayload(d *types.Demand) DemandPayload {
	return DemandPayload{
		DemandID:   d.ID,
		TemplateID: d.TemplateID,
		Name:       d.Name,
		Status:     d.Status,
		OwnerID:    d.OwnerID,
		ForecastAt: d.ForecastAt,
	}
}

// NewDemandCreated builds the event for a freshly created demand.
func NewDemandCreated(d *types.Demand) DomainEvent {
	return newEvent(TypeDemandCreated, d.ID,
		fmt.Sprintf("Demanda %q criada", d.Name), demandPayload(d))
}

// NewDemandUpdated builds the event for an edited demand.
func NewDemandUpdated(d *types.Demand) DomainEvent {
	return newEvent(TypeDemandUpdated, d.ID,
		fmt.Sprintf("Demanda %q atualizada", d.Name), demandPayload(d))
}

// StatusChangedPayload records a Kanban column move.
type StatusChangedPayload struct {
	DemandPayload
	From types.DemandStatus `json:"from"`
	To   types.DemandStatus `json:"to"`
}

// NewDemandStatusChanged builds the event for a status transition.
func NewDemandStatusChanged(d *types.Demand, from types.DemandStatus) DomainEvent {
	return newEvent(TypeDemandStatusChanged, d.ID,
		fmt.Sprintf("Demanda %q movida de %s para %s", d.Name, from, d.Status),
		StatusChangedPayload{DemandPayload: demandPayload(d), From: from, To: d.Status})
}

// NewDemandDeleted builds the event for a removed demand.
func NewDemandDeleted(d *types.Demand) DomainEvent {
	return newEvent(TypeDemandDeleted, d.ID,
		fmt.Sprintf("Demanda %q removida", d.Name), demandPayload(d))
}

// TaskPayload records a task completion or reopening.
type TaskPayload struct {
	DemandPayload
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
}

// NewTaskCompleted builds the event for a completed task.
func NewTaskCompleted(d *types.Demand, taskID, taskName string) DomainEvent {
	return newEvent(TypeTaskCompleted, d.ID,
		fmt.Sprintf("Tarefa %q concluída em %q", taskName, d.Name),
		TaskPayload{DemandPayload: demandPayload(d), TaskID: taskID, TaskName: taskName})
}

// NewTaskReopened builds the event for a reopened task.
func NewTaskReopened(d *types.Demand, taskID, taskName string) DomainEvent {
	return newEvent(TypeTaskReopened, d.ID,
		fmt.Sprintf("Tarefa %q reaberta em %q", taskName, d.Name),
		TaskPayload{DemandPayload: demandPayload(d), TaskID: taskID, TaskName: taskName})
}
