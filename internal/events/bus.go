package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus fans events out to in-process subscribers and persists them.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // eventType -> channels
	allSubs     []chan Event
	log         *EventLog // may be nil
	logger      *slog.Logger
	closed      bool
}

// NewBus creates a new event bus.
// The EventLog is optional; pass nil to disable persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		log:         log,
		logger:      logger.With("component", "bus"),
	}
}

// Publish persists e and delivers it to subscribers without blocking.
// A subscriber whose buffer is full misses the event. Persistence failures
// are logged and never returned: publishing must not undo committed work.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.isClosed() {
		return nil
	}

	if b.log != nil {
		if _, err := b.log.Append(ctx, e); err != nil {
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	// Sends happen under the read lock so Unsubscribe and Close cannot close
	// a channel mid-send. They never block, so the lock is held briefly.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, subs := range [][]chan Event{b.subscribers[e.EventType()], b.allSubs} {
		for _, ch := range subs {
			select {
			case ch <- e:
			default:
				b.logger.Warn("subscriber channel full, dropping event",
					"type", e.EventType(),
					"entity_type", e.EntityType(),
					"entity_id", e.EntityID())
			}
		}
	}
	return nil
}

func (b *Bus) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Subscribe returns a channel for events of the given types. After Close
// the channel comes back already closed.
func (b *Bus) Subscribe(bufferSize int, eventTypes ...string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	return ch
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var found chan Event
	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				found = sub
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
	for i, sub := range b.allSubs {
		if sub == ch {
			found = sub
			b.allSubs = append(b.allSubs[:i:i], b.allSubs[i+1:]...)
			break
		}
	}
	if found != nil {
		close(found)
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	seen := make(map[chan Event]bool)
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	b.subscribers = nil

	for _, ch := range b.allSubs {
		close(ch)
	}
	b.allSubs = nil

	return nil
}
