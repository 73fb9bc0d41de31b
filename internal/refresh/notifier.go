// Package refresh signals that RSVP-derived views are stale after a write.
package refresh

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/eventide/rsvp/internal/model"
)

// EventRSVPCreated is emitted after a new RSVP is stored.
const EventRSVPCreated = "rsvp.created"

// Event describes a change that invalidates cached presentation.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	RSVP       *model.RSVP `json:"rsvp"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewCreatedEvent builds an rsvp.created event for rsvp.
func NewCreatedEvent(rsvp *model.RSVP) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       EventRSVPCreated,
		RSVP:       rsvp,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier receives refresh events. Notify must not block the caller on
// slow external systems and has no result the caller acts on.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Noop discards every event.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, Event) {}

// Multi fans an event out to each notifier in order.
type Multi []Notifier

// Notify delivers event to every non-nil notifier.
func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// Combine returns a single Notifier for ns, dropping nils.
func Combine(ns ...Notifier) Notifier {
	out := make(Multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	switch len(out) {
	case 0:
		return Noop{}
	case 1:
		return out[0]
	default:
		return out
	}
}
