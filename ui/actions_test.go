package ui

import (
	"testing"

	"github.com/andewx/nxshell/input"
	"github.com/stretchr/testify/assert"
)

func TestActionTableDispatch(t *testing.T) {
	var tbl ActionTable
	var fired []string
	tbl.Add(input.ButtonA, "Select", func() bool { fired = append(fired, "A"); return true })
	tbl.Add(input.ButtonB, "Back", func() bool { fired = append(fired, "B"); return false })
	tbl.Add(input.ButtonY, "Hidden", func() bool { fired = append(fired, "Y"); return true })
	tbl.SetHidden(input.ButtonY, true)

	assert.False(t, tbl.Dispatch(input.Snapshot{Held: input.ButtonA}), "held is not pressed")
	assert.Empty(t, fired)

	assert.False(t, tbl.Dispatch(input.Snapshot{Down: input.ButtonB}))
	assert.True(t, tbl.Dispatch(input.Snapshot{Down: input.ButtonA | input.ButtonY}))
	assert.Equal(t, []string{"B", "A", "Y"}, fired, "hidden actions still run")

	tbl.SetAvailable(input.ButtonA, false)
	fired = nil
	tbl.Dispatch(input.Snapshot{Down: input.ButtonA})
	assert.Empty(t, fired)
}

func TestActionTableHints(t *testing.T) {
	var tbl ActionTable
	tbl.Add(input.ButtonA, "Select", nil)
	tbl.Add(input.ButtonB, "Back", nil)
	tbl.Add(input.ButtonMinus, "Debug", nil)
	tbl.SetHidden(input.ButtonMinus, true)
	tbl.SetAvailable(input.ButtonB, false)

	hints := tbl.Hints()
	if assert.Len(t, hints, 1) {
		assert.Equal(t, "Select", hints[0].Hint)
	}

	tbl.Add(input.ButtonA, "Open", nil)
	assert.Equal(t, 3, tbl.Len(), "rebinding replaces")
	assert.Equal(t, "Open", tbl.Get(input.ButtonA).Hint)
	assert.Nil(t, tbl.Get(input.ButtonZR))
}
