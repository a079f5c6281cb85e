// Package events carries engine notifications from the component that
// committed a change to independent subscribers. Events are published after
// the registry transaction commits and delivery is fire-and-forget.
package events

import "time"

// Entity types an event can be about.
const (
	EntityTitle   = "title"
	EntityChapter = "chapter"
)

// Event is implemented by every engine event.
type Event interface {
	EventType() string
	EntityType() string
	EntityID() int64
	OccurredAt() time.Time
}

// BaseEvent holds the envelope fields. Embed it and build it with ForTitle
// or ForChapter.
type BaseEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity_type"`
	ID        int64     `json:"entity_id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EntityType() string    { return e.Entity }
func (e BaseEvent) EntityID() int64       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// ForTitle stamps an event about the title with the given id.
func ForTitle(eventType string, titleID int64) BaseEvent {
	return BaseEvent{Type: eventType, Entity: EntityTitle, ID: titleID, Timestamp: time.Now().UTC()}
}

// ForChapter stamps an event about the chapter with the given id.
func ForChapter(eventType string, chapterID int64) BaseEvent {
	return BaseEvent{Type: eventType, Entity: EntityChapter, ID: chapterID, Timestamp: time.Now().UTC()}
}
