package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerEdges(t *testing.T) {
	var tr Tracker

	s := tr.Update(ButtonA)
	assert.True(t, s.Pressed(ButtonA))
	assert.True(t, s.IsHeld(ButtonA))

	s = tr.Update(ButtonA | ButtonPlus)
	assert.False(t, s.Pressed(ButtonA), "held, not newly pressed")
	assert.True(t, s.Pressed(ButtonPlus))

	s = tr.Update(ButtonNone)
	assert.Equal(t, ButtonNone, s.Down)

	tr.Update(ButtonB)
	tr.Reset()
	assert.True(t, tr.Update(ButtonB).Pressed(ButtonB))
}

func TestScripted(t *testing.T) {
	src := NewScripted(ButtonNone, ButtonMinus, ButtonMinus)
	src.Push(ButtonPlus)

	var downs []Button
	for i := 0; i < 6; i++ {
		downs = append(downs, src.Poll().Down)
	}
	assert.Equal(t, []Button{ButtonNone, ButtonMinus, ButtonNone, ButtonPlus, ButtonNone, ButtonNone}, downs)
	assert.Equal(t, 6, src.Polls())
}

func TestButtonNames(t *testing.T) {
	assert.Equal(t, "A+Plus", (ButtonA | ButtonPlus).String())
	assert.Equal(t, "None", ButtonNone.String())
	assert.Len(t, Buttons(), 16)

	b, err := ParseButton("plus")
	require.NoError(t, err)
	assert.Equal(t, ButtonPlus, b)

	_, err = ParseButton("home")
	assert.Error(t, err)
}
