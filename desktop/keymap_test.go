package desktop

import (
	"testing"

	"github.com/andewx/nxshell/input"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestKeyboardEdges(t *testing.T) {
	k := NewKeyboard(nil)

	assert.True(t, k.Key(glfw.KeyEnter, glfw.Press))
	assert.True(t, k.Key(glfw.KeyX, glfw.Press))
	s := k.Poll()
	assert.Equal(t, input.ButtonPlus|input.ButtonA, s.Held)
	assert.True(t, s.Pressed(input.ButtonPlus))

	// key repeat keeps the button held without a new press
	k.Key(glfw.KeyEnter, glfw.Repeat)
	s = k.Poll()
	assert.True(t, s.IsHeld(input.ButtonPlus))
	assert.False(t, s.Pressed(input.ButtonPlus))

	k.Key(glfw.KeyEnter, glfw.Release)
	s = k.Poll()
	assert.Equal(t, input.ButtonA, s.Held)
	assert.Equal(t, input.ButtonNone, s.Down)

	k.Release()
	assert.Equal(t, input.ButtonNone, k.Poll().Held)
}

func TestKeyboardIgnoresUnmappedKeys(t *testing.T) {
	k := NewKeyboard(map[glfw.Key]input.Button{glfw.KeySpace: input.ButtonA})
	assert.False(t, k.Key(glfw.KeyX, glfw.Press))
	assert.True(t, k.Key(glfw.KeySpace, glfw.Press))
	assert.Equal(t, input.ButtonA, k.Poll().Down)
}

func TestKeymapCoversEveryButton(t *testing.T) {
	var all input.Button
	for _, b := range DefaultKeymap {
		all |= b
	}
	for _, b := range input.Buttons() {
		assert.NotZero(t, all&b, "button %s has no key", b)
	}
	for key := range ModeKeys {
		_, taken := DefaultKeymap[key]
		assert.False(t, taken, "mode key %d is also a button", key)
	}
}
