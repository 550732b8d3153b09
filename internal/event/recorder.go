package event

import (
	"context"

	"github.com/fbastos/demandboard/internal/activity"
)

// Recorder writes domain events to the activity log.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// ActivityRecorder implements Recorder by writing one activity entry
// per event via activity.Store. If a Publisher is set, the event is
// also published to the event bus after the store write succeeds.
type ActivityRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewActivityRecorder creates a Recorder backed by the given store.
func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record writes the event's activity entry and publishes to the bus.
func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	entry := activity.Entry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		DemandID:   evt.DemandID,
		Summary:    evt.Summary,
		Payload:    evt.Payload,
	}
	if err := r.store.WriteEntries(ctx, []activity.Entry{entry}); err != nil {
		return err
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}
