package services

import (
	"sync"
	"time"
)

// Domain event names emitted by the core. Delivery is best-effort — the
// notification/UI side subscribes, but no core invariant depends on a
// subscriber seeing an event.
const (
	EventApplicationAccepted = "application.accepted"
	EventBountyCompleted     = "bounty.completed"
	EventPointsAwarded       = "points.awarded"
)

type DomainEvent struct {
	Name       string                 `json:"name"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// EventBus is a small in-process pub/sub. Publish never blocks: a subscriber
// with a full buffer misses the event rather than stalling a request handler.
type EventBus struct {
	mu   sync.RWMutex
	subs map[int]chan DomainEvent
	next int
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan DomainEvent)}
}

// Subscribe returns a receive channel and an unsubscribe func.
func (b *EventBus) Subscribe(buffer int) (<-chan DomainEvent, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan DomainEvent, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber, dropping on full buffers.
func (b *EventBus) Publish(name string, payload map[string]interface{}) {
	ev := DomainEvent{Name: name, Payload: payload, OccurredAt: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // subscriber too slow — best-effort only
		}
	}
}
