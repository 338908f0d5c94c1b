package events

import (
	"sync"
	"sync/atomic"
)

// Event names emitted by the engine.
const (
	TopicScanProgress    = "scan://progress"
	TopicScanCompleted   = "scan://completed"
	TopicScanError       = "scan://error"
	TopicExportProgress  = "export://progress"
	TopicExportCompleted = "export://completed"
)

// Event is one named payload delivered to subscribers.
type Event struct {
	Topic   string
	Payload interface{}
}

// subscriberBuffer bounds each subscriber channel. Slow consumers lose
// progress events rather than stalling the engine.
const subscriberBuffer = 256

// Bus fans events out to subscribers. Publish never blocks; when a
// subscriber channel is full the event is dropped and counted.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan Event
	dropped atomic.Int64
	logger  *Logger
}

// NewBus creates an event bus.
func NewBus(logger *Logger) *Bus {
	if logger == nil {
		logger = defaultLogger
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		logger: logger.WithField("component", "event_bus"),
	}
}

// Subscribe registers a consumer. The returned cancel func closes the
// channel and must be called exactly once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	evt := Event{Topic: topic, Payload: payload}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			b.logger.WithField("topic", topic).Debug("Dropped event for slow subscriber")
		}
	}
}

// Dropped returns the count of events dropped so far.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
