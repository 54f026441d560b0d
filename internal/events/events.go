// Package events publishes domain events after their transaction commits.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Routing keys
const (
	TransactionCreated = "transaction.created"
	MemberJoined       = "member.joined"
	InvitationCreated  = "invitation.created"
)

// Event is the envelope sent to subscribers
type Event struct {
	Type       string          `json:"type"`
	FamilyID   int64           `json:"family_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an event, encoding payload as JSON
func New(eventType string, familyID int64, occurredAt time.Time, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, FamilyID: familyID, OccurredAt: occurredAt, Payload: body}, nil
}

// Publisher delivers events. Publish failures never undo committed state;
// callers log them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters recorded events by routing key
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
