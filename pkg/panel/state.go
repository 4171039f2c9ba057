package panel

import (
	"sync"
	"time"
)

// DefaultMouseHold is how long terminal mouse activity counts as the
// pointer being over the panel.
const DefaultMouseHold = 1500 * time.Millisecond

// State is the part of the panel the polling engine reads. It is shared
// between the terminal program and the engine goroutines.
type State struct {
	mu          sync.Mutex
	pinned      bool
	editing     bool
	lastMouse   time.Time
	mouseHold   time.Duration
	instruction string
	now         func() time.Time
}

// NewState creates an idle panel state.
func NewState() *State {
	return &State{mouseHold: DefaultMouseHold, now: time.Now}
}

// SetMouseHold changes how long mouse activity counts. Non-positive values
// restore the default.
func (s *State) SetMouseHold(d time.Duration) {
	if d <= 0 {
		d = DefaultMouseHold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mouseHold = d
}

// PointerOverPanel reports whether the user is working in the panel: it is
// pinned, the instruction is being edited, or the mouse moved over it
// recently. Hover clearing is suppressed while this holds.
func (s *State) PointerOverPanel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned || s.editing {
		return true
	}
	return !s.lastMouse.IsZero() && s.now().Sub(s.lastMouse) < s.mouseHold
}

// ResetInstruction clears the custom instruction.
func (s *State) ResetInstruction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruction = ""
}

// Instruction returns the custom instruction.
func (s *State) Instruction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instruction
}

// SetInstruction stores the custom instruction.
func (s *State) SetInstruction(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruction = v
}

// TogglePin flips the pinned flag and returns the new value.
func (s *State) TogglePin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = !s.pinned
	return s.pinned
}

// Pinned reports whether the panel is pinned.
func (s *State) Pinned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

// SetEditing marks the instruction input as active.
func (s *State) SetEditing(editing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = editing
}

// TouchMouse records mouse activity over the panel.
func (s *State) TouchMouse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMouse = s.now()
}
