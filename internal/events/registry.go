package events

import (
	"encoding/json"
	"fmt"
)

// EventFactory creates a new zero-value event of a specific type.
type EventFactory func() Event

// Registry maps event types to their factories for deserialization.
type Registry struct {
	factories map[string]EventFactory
}

// NewRegistry creates a new event registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]EventFactory),
	}
}

// Register adds an event type to the registry.
func (r *Registry) Register(eventType string, factory EventFactory) {
	r.factories[eventType] = factory
}

// Unmarshal deserializes a raw event into its concrete type.
func (r *Registry) Unmarshal(raw RawEvent) (Event, error) {
	factory, ok := r.factories[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", raw.EventType)
	}

	event := factory()
	if err := json.Unmarshal([]byte(raw.Payload), event); err != nil {
		return nil, fmt.Errorf("unmarshal event payload: %w", err)
	}

	return event, nil
}

// DefaultRegistry returns a registry with every engine event registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(EventTitleAdded, func() Event { return &TitleAdded{} })
	r.Register(EventTitleUpdated, func() Event { return &TitleUpdated{} })
	r.Register(EventTitleRemoved, func() Event { return &TitleRemoved{} })
	r.Register(EventTitleChecked, func() Event { return &TitleChecked{} })
	r.Register(EventMetadataUpdated, func() Event { return &MetadataUpdated{} })

	r.Register(EventChapterDownloaded, func() Event { return &ChapterDownloaded{} })
	r.Register(EventChapterDownloadFailed, func() Event { return &ChapterDownloadFailed{} })
	r.Register(EventChapterRemoved, func() Event { return &ChapterRemoved{} })
	r.Register(EventOutOfSyncFlagged, func() Event { return &OutOfSyncFlagged{} })

	return r
}
