package gfx_test

import (
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmdBuf(t *testing.T, size uint64) *gfx.CmdBuf {
	t.Helper()
	pool, err := gfx.NewMemoryPool(openSoft(t), "data", 4096, gfx.MemCPUUncached)
	require.NoError(t, err)
	mem, err := pool.Alloc(size, 1)
	require.NoError(t, err)
	cb := gfx.NewCmdBuf()
	cb.AddMemory(mem)
	return cb
}

func TestCmdBufFinishList(t *testing.T) {
	cb := newCmdBuf(t, 1024)

	cb.SetViewport(gfx.Viewport{Width: 4, Height: 4, Far: 1})
	cb.ClearColor([4]float32{1, 0, 0, 1})
	first, err := cb.FinishList()
	require.NoError(t, err)

	cb.ClearDepthStencil(1, 0)
	second, err := cb.FinishList()
	require.NoError(t, err)

	require.Len(t, first.Ops(), 2)
	assert.Equal(t, gfx.OpViewport, first.Ops()[0].Kind)
	assert.Equal(t, gfx.OpClearColor, first.Ops()[1].Kind)
	require.Len(t, second.Ops(), 1)
	assert.Equal(t, float32(1), second.Ops()[0].ClearDepth)
	assert.Equal(t, uint64(96), cb.Used())
}

func TestCmdBufClearInvalidatesLists(t *testing.T) {
	cb := newCmdBuf(t, 1024)
	cb.ClearColor([4]float32{})
	list, err := cb.FinishList()
	require.NoError(t, err)
	assert.True(t, list.Valid())
	assert.NoError(t, gfx.CheckList(list))

	cb.Clear()
	assert.False(t, list.Valid())
	assert.ErrorIs(t, gfx.CheckList(list), gfx.ErrStaleList)
	assert.ErrorIs(t, gfx.CheckList(nil), gfx.ErrStaleList)
	assert.Equal(t, uint64(0), cb.Used())
}

func TestCmdBufOverflow(t *testing.T) {
	cb := newCmdBuf(t, 64)
	cb.ClearColor([4]float32{})
	cb.ClearDepthStencil(1, 0)
	cb.SetScissor(gfx.Rect{Width: 1, Height: 1})
	_, err := cb.FinishList()
	assert.ErrorIs(t, err, gfx.ErrCmdMemExhausted)

	// the error is reported once; recording resumes after Clear
	cb.Clear()
	cb.ClearColor([4]float32{})
	list, err := cb.FinishList()
	require.NoError(t, err)
	assert.Len(t, list.Ops(), 1)
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "bind-targets", gfx.OpBindTargets.String())
	assert.Equal(t, "copy-buffer", gfx.OpCopyBuffer.String())
	assert.Equal(t, "unknown", gfx.OpKind(0).String())
}
