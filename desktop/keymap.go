package desktop

import (
	"sync"

	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/input"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// DefaultKeymap maps keyboard keys onto controller buttons.
var DefaultKeymap = map[glfw.Key]input.Button{
	glfw.KeyX:         input.ButtonA,
	glfw.KeyZ:         input.ButtonB,
	glfw.KeyS:         input.ButtonX,
	glfw.KeyA:         input.ButtonY,
	glfw.KeyQ:         input.ButtonL,
	glfw.KeyW:         input.ButtonR,
	glfw.Key1:         input.ButtonZL,
	glfw.Key2:         input.ButtonZR,
	glfw.KeyC:         input.ButtonStickL,
	glfw.KeyV:         input.ButtonStickR,
	glfw.KeyEnter:     input.ButtonPlus,
	glfw.KeyBackspace: input.ButtonMinus,
	glfw.KeyLeft:      input.ButtonLeft,
	glfw.KeyUp:        input.ButtonUp,
	glfw.KeyRight:     input.ButtonRight,
	glfw.KeyDown:      input.ButtonDown,
}

// ModeKeys switch the operation mode, standing in for the dock.
var ModeKeys = map[glfw.Key]frame.Mode{
	glfw.KeyF1: frame.ModeHandheld,
	glfw.KeyF2: frame.ModeConsole,
}

// Keyboard is an input.Source fed by window key events.
type Keyboard struct {
	keymap map[glfw.Key]input.Button

	mu      sync.Mutex
	held    input.Button
	tracker input.Tracker
}

func NewKeyboard(keymap map[glfw.Key]input.Button) *Keyboard {
	if keymap == nil {
		keymap = DefaultKeymap
	}
	return &Keyboard{keymap: keymap}
}

// Key records a key event and reports whether the key is mapped.
func (k *Keyboard) Key(key glfw.Key, action glfw.Action) bool {
	b, ok := k.keymap[key]
	if !ok {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	switch action {
	case glfw.Press:
		k.held |= b
	case glfw.Release:
		k.held &^= b
	}
	return true
}

// Release drops every held button, for instance when the window loses focus.
func (k *Keyboard) Release() {
	k.mu.Lock()
	k.held = input.ButtonNone
	k.mu.Unlock()
}

func (k *Keyboard) Poll() input.Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tracker.Update(k.held)
}
