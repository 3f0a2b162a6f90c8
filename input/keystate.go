package input

import "time"

// Transition is the semantic result of applying one raw key event.
type Transition uint8

const (
	// NoChange means the event repeated the key's current state
	// (auto-repeat down, duplicate up, or a suppressed bounce).
	NoChange Transition = iota

	// PressedNow is a true down edge.
	PressedNow

	// ReleasedNow is a true up edge.
	ReleasedNow
)

func (t Transition) String() string {
	switch t {
	case PressedNow:
		return "pressed"
	case ReleasedNow:
		return "released"
	}
	return "no_change"
}

// KeyState tracks the pressed/released state of every key code seen. A code
// is pressed if and only if its most recent event was a down not yet
// followed by an up. Unknown or out-of-range codes are tracked like any
// other; codes with no pixel mapping are simply inert downstream.
//
// KeyState is not safe for concurrent use; the controller applies events
// from a single goroutine.
type KeyState struct {
	pressed  map[uint16]struct{}
	lastEdge map[uint16]time.Time
	debounce time.Duration
}

// NewKeyState creates a tracker. A non-zero debounce suppresses any
// transition that follows the previous transition of the same key within
// the window; zero disables debouncing.
func NewKeyState(debounce time.Duration) *KeyState {
	return &KeyState{
		pressed:  make(map[uint16]struct{}),
		lastEdge: make(map[uint16]time.Time),
		debounce: debounce,
	}
}

// Apply folds one raw event into the tracker and reports the edge it
// produced. Duplicate identical events (a second down while already down,
// including kernel auto-repeat) yield NoChange.
func (s *KeyState) Apply(ev KeyEvent) Transition {
	_, isPressed := s.pressed[ev.Code]

	if ev.Down == isPressed {
		return NoChange
	}

	if s.debounce > 0 {
		if last, ok := s.lastEdge[ev.Code]; ok && ev.Time.Sub(last) < s.debounce {
			return NoChange
		}
	}

	s.lastEdge[ev.Code] = ev.Time
	if ev.Down {
		s.pressed[ev.Code] = struct{}{}
		return PressedNow
	}
	delete(s.pressed, ev.Code)
	return ReleasedNow
}

// IsPressed reports whether code is currently held down.
func (s *KeyState) IsPressed(code uint16) bool {
	_, ok := s.pressed[code]
	return ok
}

// PressedCount returns the number of keys currently held down.
func (s *KeyState) PressedCount() int {
	return len(s.pressed)
}
