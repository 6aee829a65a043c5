// Package core provides the event channel and subscription primitives for
// twinpane. This package must NOT import any adapter-specific code (Wails,
// HTTP frameworks). It should be fully testable without UI.
package core

import (
	"sync"
	"time"
)

// Event is a single progress or terminal notification for one operation.
// Kind strings are owned by whoever publishes; the bus routes them opaquely.
// Payload is the wire shape for the event kind and is treated as read-only
// by every subscriber.
type Event struct {
	Seq         int64       `json:"seq"`
	Kind        string      `json:"kind"`
	OperationID string      `json:"operationId"`
	Payload     interface{} `json:"payload"`
	At          time.Time   `json:"at"`
}

// EventEmitter is the interface adapters implement to receive events.
// This allows the core Bus to be agnostic about how events are delivered.
type EventEmitter interface {
	EmitEvent(ev Event)
}

// subscriptionBuffer is the channel capacity handed to each subscriber.
// A subscriber that falls this far behind starts losing events; the drop
// count is recorded so the slowness is visible rather than silent.
const subscriptionBuffer = 100

// Subscription is one subscriber's view of the bus. Events arrive on C in
// publish order. Close the subscription when done or the bus keeps
// delivering to it.
type Subscription struct {
	C chan Event

	bus   *Bus
	id    int
	kinds map[string]bool

	mu      sync.Mutex
	dropped int64
	closed  bool
}

// Dropped returns how many events were discarded because the subscriber's
// channel was full.
func (s *Subscription) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close removes the subscription from the bus and closes C.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

func (s *Subscription) wants(kind string) bool {
	if len(s.kinds) == 0 {
		return true
	}
	return s.kinds[kind]
}

func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.C <- ev:
	default:
		s.dropped++
	}
}

// Bus multiplexes operation events to subscribers and registered emitters.
// It is the single event path out of the engines: every progress, conflict
// and terminal event flows through Publish, which stamps a global sequence
// number so subscribers can discard stale snapshots.
type Bus struct {
	mu       sync.Mutex
	seq      int64
	nextSub  int
	subs     map[int]*Subscription
	emitters []EventEmitter
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]*Subscription),
	}
}

// Subscribe registers a new subscriber. If kinds are given only those event
// kinds are delivered; with no kinds the subscriber sees everything.
// Subscribe before issuing the start command, never after: the first events
// of a fast operation can beat the start call's response.
func (b *Bus) Subscribe(kinds ...string) *Subscription {
	sub := &Subscription{
		C:   make(chan Event, subscriptionBuffer),
		bus: b,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	sub.id = b.nextSub
	b.nextSub++
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.C)
	}
	sub.mu.Unlock()
}

// AddEmitter adds a push-style emitter. Events are sent to all registered
// emitters in addition to channel subscribers.
func (b *Bus) AddEmitter(emitter EventEmitter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitters = append(b.emitters, emitter)
}

// Publish stamps the event with the next sequence number and fans it out.
// Slow channel subscribers lose events rather than block the publisher;
// push emitters are invoked synchronously and must be fast.
func (b *Bus) Publish(kind, operationID string, payload interface{}) {
	b.mu.Lock()
	b.seq++
	ev := Event{
		Seq:         b.seq,
		Kind:        kind,
		OperationID: operationID,
		Payload:     payload,
		At:          time.Now(),
	}
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(kind) {
			subs = append(subs, s)
		}
	}
	emitters := make([]EventEmitter, len(b.emitters))
	copy(emitters, b.emitters)
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(ev)
	}
	for _, e := range emitters {
		if e != nil {
			e.EmitEvent(ev)
		}
	}
}

// Emit satisfies the engines' event sink contract.
func (b *Bus) Emit(kind, operationID string, payload interface{}) {
	b.Publish(kind, operationID, payload)
}
