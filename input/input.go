// Package input defines the controller buttons and the per-tick input
// snapshot the frame loop reads.
package input

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Button is a bit set of controller buttons.
type Button uint32

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonX
	ButtonY
	ButtonStickL
	ButtonStickR
	ButtonL
	ButtonR
	ButtonZL
	ButtonZR
	ButtonPlus
	ButtonMinus
	ButtonLeft
	ButtonUp
	ButtonRight
	ButtonDown

	ButtonNone Button = 0
)

var buttonNames = []struct {
	b    Button
	name string
}{
	{ButtonA, "A"},
	{ButtonB, "B"},
	{ButtonX, "X"},
	{ButtonY, "Y"},
	{ButtonStickL, "StickL"},
	{ButtonStickR, "StickR"},
	{ButtonL, "L"},
	{ButtonR, "R"},
	{ButtonZL, "ZL"},
	{ButtonZR, "ZR"},
	{ButtonPlus, "Plus"},
	{ButtonMinus, "Minus"},
	{ButtonLeft, "Left"},
	{ButtonUp, "Up"},
	{ButtonRight, "Right"},
	{ButtonDown, "Down"},
}

// Buttons lists every single button in bit order.
func Buttons() []Button {
	out := make([]Button, len(buttonNames))
	for i, n := range buttonNames {
		out[i] = n.b
	}
	return out
}

func (b Button) String() string {
	if b == ButtonNone {
		return "None"
	}
	var parts []string
	for _, n := range buttonNames {
		if b&n.b != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "+")
}

// ParseButton resolves a single button name, case insensitively.
func ParseButton(name string) (Button, error) {
	for _, n := range buttonNames {
		if strings.EqualFold(n.name, name) {
			return n.b, nil
		}
	}
	return ButtonNone, errors.Errorf("unknown button %q", name)
}

// Snapshot is the input state of one tick.
type Snapshot struct {
	// Held has every button currently down.
	Held Button
	// Down has the buttons that went down since the previous tick.
	Down Button
}

// Pressed reports whether any of b went down this tick.
func (s Snapshot) Pressed(b Button) bool { return s.Down&b != 0 }

// IsHeld reports whether any of b is down.
func (s Snapshot) IsHeld(b Button) bool { return s.Held&b != 0 }

// Source is polled once per tick.
type Source interface {
	Poll() Snapshot
}

// Tracker derives newly pressed buttons from successive held states.
type Tracker struct {
	prev Button
}

// Update records held as the current state and returns the snapshot.
func (t *Tracker) Update(held Button) Snapshot {
	s := Snapshot{Held: held, Down: held &^ t.prev}
	t.prev = held
	return s
}

// Reset forgets the previous state; buttons held at the next Update count as
// newly pressed.
func (t *Tracker) Reset() { t.prev = ButtonNone }

// Scripted replays a fixed sequence of held states, one per Poll. Once the
// script runs out every button reads as released.
type Scripted struct {
	mu      sync.Mutex
	frames  []Button
	polls   int
	tracker Tracker
}

// NewScripted returns a source replaying frames.
func NewScripted(frames ...Button) *Scripted {
	return &Scripted{frames: frames}
}

// Push appends held states to the script.
func (s *Scripted) Push(frames ...Button) {
	s.mu.Lock()
	s.frames = append(s.frames, frames...)
	s.mu.Unlock()
}

func (s *Scripted) Poll() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	held := ButtonNone
	if s.polls < len(s.frames) {
		held = s.frames[s.polls]
	}
	s.polls++
	return s.tracker.Update(held)
}

// Polls returns how many times Poll was called.
func (s *Scripted) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}
