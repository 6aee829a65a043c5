package core

import "sync"

// Tracker follows the events of a single operation across the subscribe
// window. The caller subscribes first, then issues the start command; if
// an event arrives before the start response has delivered the operation
// id, the tracker adopts the first event's id and filters on it from then
// on. Stale events (sequence numbers at or below the last accepted one)
// are rejected so a late redelivery can never rewind observed progress.
type Tracker struct {
	mu      sync.Mutex
	id      string
	adopted bool
	lastSeq int64
}

// NewTracker creates a Tracker with no operation id yet.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track pins the tracker to an explicit operation id, typically from the
// start call's response. If the tracker already adopted an id from an
// earlier event, Track reports whether the two agree; a mismatch means
// the adopted events belonged to someone else's operation.
func (t *Tracker) Track(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adopted {
		return t.id == id
	}
	t.id = id
	t.adopted = true
	return true
}

// Accept reports whether ev belongs to the tracked operation and is fresh.
// The first event seen before any Track call is accepted unconditionally
// and its id adopted.
func (t *Tracker) Accept(ev Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.adopted {
		t.id = ev.OperationID
		t.adopted = true
	} else if ev.OperationID != t.id {
		return false
	}

	if ev.Seq <= t.lastSeq {
		return false
	}
	t.lastSeq = ev.Seq
	return true
}

// ID returns the tracked operation id, or "" if none adopted yet.
func (t *Tracker) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}
