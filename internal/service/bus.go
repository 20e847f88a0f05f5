package service

import "sync"

// Resources named in events.
const (
	ResourceLayers     = "layers"
	ResourceTree       = "tree"
	ResourceBackground = "background"
	ResourceFilters    = "filters"
	ResourceDrawing    = "drawing"
	ResourceState      = "state"
	ResourceRender     = "render"
)

// Event describes one change. Action is one of created, updated, deleted,
// moved, selected, loaded or applied.
type Event struct {
	Resource string
	Action   string
	ID       string
}

const subscriberBuffer = 16

// EventBus fans events out to subscribers without blocking the publisher.
// A subscriber whose buffer is full loses its oldest pending event, so the
// most recent event is always delivered.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new buffered subscriber.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
