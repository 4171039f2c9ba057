// Package keys tracks the pressed state of one physical modifier key.
//
// The same semantics are implemented by the injected agent script for every
// embedded context; this Go tracker is the host-level instance. The poller
// combines all of them with a logical OR.
package keys

import "sync"

// Location distinguishes physical variants of the same key. Values match the
// DOM KeyboardEvent.location constants.
type Location int

const (
	LocationAny   Location = 0 // LocationAny accepts every variant.
	LocationLeft  Location = 1 // LocationLeft is the left-hand key.
	LocationRight Location = 2 // LocationRight is the right-hand key.
)

// Event is one key transition reported to a Tracker.
type Event struct {
	Key      string
	Location Location
	Down     bool
	Repeat   bool
}

// Tracker maintains the held flag for one key variant.
type Tracker struct {
	mu       sync.RWMutex
	key      string
	location Location
	held     bool
	onChange func(held bool)
}

// NewTracker creates a tracker for key at location. LocationAny accepts both
// the left and right variants.
func NewTracker(key string, location Location) *Tracker {
	return &Tracker{key: key, location: location}
}

// OnChange registers a callback fired after every transition of the held flag.
func (t *Tracker) OnChange(fn func(held bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Matches reports whether ev concerns the tracked key variant.
func (t *Tracker) Matches(ev Event) bool {
	if ev.Key != t.key {
		return false
	}
	return t.location == LocationAny || ev.Location == t.location
}

// Handle applies a key event. It returns true when the held flag changed.
// Auto-repeat key-downs never fire a transition.
func (t *Tracker) Handle(ev Event) bool {
	if !t.Matches(ev) {
		return false
	}
	if ev.Down && ev.Repeat {
		return false
	}
	return t.set(ev.Down)
}

// Blur clears the held flag when focus or visibility is lost, since the
// key-up will never be delivered.
func (t *Tracker) Blur() bool {
	return t.set(false)
}

// Held reports the current state.
func (t *Tracker) Held() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.held
}

// Toggle flips the held flag. Hosts that cannot observe key-up (a terminal)
// use it as a latch.
func (t *Tracker) Toggle() bool {
	t.mu.RLock()
	held := t.held
	t.mu.RUnlock()
	t.set(!held)
	return !held
}

func (t *Tracker) set(held bool) bool {
	t.mu.Lock()
	if t.held == held {
		t.mu.Unlock()
		return false
	}
	t.held = held
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(held)
	}
	return true
}
