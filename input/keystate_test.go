package input

import (
	"testing"
	"time"
)

func down(code uint16, at time.Time) KeyEvent {
	return KeyEvent{Code: code, Down: true, Time: at}
}

func up(code uint16, at time.Time) KeyEvent {
	return KeyEvent{Code: code, Down: false, Time: at}
}

func TestApplyEdgeDetection(t *testing.T) {
	s := NewKeyState(0)
	now := time.Now()

	testCases := []struct {
		name string
		ev   KeyEvent
		want Transition
	}{
		{"first down", down(5, now), PressedNow},
		{"repeat down", down(5, now.Add(time.Millisecond)), NoChange},
		{"another repeat", down(5, now.Add(2*time.Millisecond)), NoChange},
		{"release", up(5, now.Add(3*time.Millisecond)), ReleasedNow},
		{"duplicate release", up(5, now.Add(4*time.Millisecond)), NoChange},
		{"down again", down(5, now.Add(5*time.Millisecond)), PressedNow},
	}

	for _, tc := range testCases {
		if got := s.Apply(tc.ev); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIsPressedTracksState(t *testing.T) {
	s := NewKeyState(0)
	now := time.Now()

	if s.IsPressed(9) {
		t.Error("key pressed before any event")
	}

	s.Apply(down(9, now))
	if !s.IsPressed(9) {
		t.Error("key not pressed after down")
	}
	if s.IsPressed(10) {
		t.Error("unrelated key reported pressed")
	}

	s.Apply(up(9, now))
	if s.IsPressed(9) {
		t.Error("key still pressed after up")
	}
}

func TestIndependentKeys(t *testing.T) {
	s := NewKeyState(0)
	now := time.Now()

	s.Apply(down(1, now))
	s.Apply(down(2, now))
	if s.PressedCount() != 2 {
		t.Errorf("pressed count = %d, want 2", s.PressedCount())
	}

	if got := s.Apply(up(1, now)); got != ReleasedNow {
		t.Errorf("release of key 1: got %s", got)
	}
	if !s.IsPressed(2) {
		t.Error("key 2 released by key 1's event")
	}
}

// Out-of-range or unknown codes are tracked like any other; they must not
// fail the stream.
func TestUnknownCodesTrackedGenerically(t *testing.T) {
	s := NewKeyState(0)
	now := time.Now()

	if got := s.Apply(down(0xFFFF, now)); got != PressedNow {
		t.Errorf("unknown code down: got %s, want PressedNow", got)
	}
	if got := s.Apply(up(0xFFFF, now)); got != ReleasedNow {
		t.Errorf("unknown code up: got %s, want ReleasedNow", got)
	}
}

func TestDebounceSuppressesBounce(t *testing.T) {
	s := NewKeyState(10 * time.Millisecond)
	now := time.Now()

	if got := s.Apply(down(5, now)); got != PressedNow {
		t.Fatalf("first down: got %s", got)
	}

	// Contact bounce: an up 2ms later is suppressed.
	if got := s.Apply(up(5, now.Add(2*time.Millisecond))); got != NoChange {
		t.Errorf("bouncing up: got %s, want NoChange", got)
	}

	// The key is still considered held.
	if !s.IsPressed(5) {
		t.Error("bounce released the key")
	}

	// A release after the window is a real edge.
	if got := s.Apply(up(5, now.Add(15*time.Millisecond))); got != ReleasedNow {
		t.Errorf("late up: got %s, want ReleasedNow", got)
	}
}

func TestDebounceDisabledByDefault(t *testing.T) {
	s := NewKeyState(0)
	now := time.Now()

	s.Apply(down(5, now))
	if got := s.Apply(up(5, now)); got != ReleasedNow {
		t.Errorf("instant up with no debounce: got %s, want ReleasedNow", got)
	}
}
