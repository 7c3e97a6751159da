package ui

import "github.com/andewx/nxshell/input"

// ActionListener runs when the bound button is pressed. It reports whether
// the press was consumed.
type ActionListener func() bool

// Action binds a button to a hint and a listener.
type Action struct {
	Button    input.Button
	Hint      string
	Available bool
	// Hidden actions still run but are left out of the hint bar.
	Hidden   bool
	Listener ActionListener
}

// ActionTable maps buttons to actions. At most one action exists per button.
type ActionTable struct {
	actions []*Action
}

// Add binds button to hint and listener, replacing any previous binding. The
// action starts available and visible.
func (t *ActionTable) Add(button input.Button, hint string, listener ActionListener) *Action {
	a := &Action{Button: button, Hint: hint, Available: true, Listener: listener}
	for i, old := range t.actions {
		if old.Button == button {
			t.actions[i] = a
			return a
		}
	}
	t.actions = append(t.actions, a)
	return a
}

// Get returns the action bound to button, or nil.
func (t *ActionTable) Get(button input.Button) *Action {
	for _, a := range t.actions {
		if a.Button == button {
			return a
		}
	}
	return nil
}

func (t *ActionTable) SetAvailable(button input.Button, available bool) {
	if a := t.Get(button); a != nil {
		a.Available = available
	}
}

func (t *ActionTable) SetHidden(button input.Button, hidden bool) {
	if a := t.Get(button); a != nil {
		a.Hidden = hidden
	}
}

// Dispatch runs the listener of every available action whose button went
// down in s, in binding order. It reports whether any listener consumed its
// press.
func (t *ActionTable) Dispatch(s input.Snapshot) bool {
	consumed := false
	for _, a := range append([]*Action(nil), t.actions...) {
		if !a.Available || a.Listener == nil || !s.Pressed(a.Button) {
			continue
		}
		if a.Listener() {
			consumed = true
		}
	}
	return consumed
}

// Hints returns the available, visible actions in binding order.
func (t *ActionTable) Hints() []*Action {
	var out []*Action
	for _, a := range t.actions {
		if a.Available && !a.Hidden {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of bound actions.
func (t *ActionTable) Len() int { return len(t.actions) }
