package gfx_test

import (
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/gfx/softgfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSoft(t *testing.T) gfx.Device {
	t.Helper()
	dev, err := (&softgfx.Backend{}).Open(nil)
	require.NoError(t, err)
	t.Cleanup(dev.Destroy)
	return dev
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), gfx.AlignUp(0, 64))
	assert.Equal(t, uint64(64), gfx.AlignUp(1, 64))
	assert.Equal(t, uint64(128), gfx.AlignUp(128, 64))
	assert.Equal(t, uint64(7), gfx.AlignUp(7, 1))
	assert.Equal(t, uint64(7), gfx.AlignUp(7, 0))
}

func TestPoolAllocFree(t *testing.T) {
	pool, err := gfx.NewMemoryPool(openSoft(t), "data", 1024, gfx.MemCPUUncached)
	require.NoError(t, err)

	a, err := pool.Alloc(100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a.Offset())

	b, err := pool.Alloc(100, 64)
	require.NoError(t, err)
	assert.Equal(t, uint64(128), b.Offset())
	assert.Equal(t, uint64(200), pool.Used())
	assert.Equal(t, 2, pool.Live())

	// the freed head merges with the alignment padding in front of b
	require.NoError(t, a.Free())
	c, err := pool.Alloc(128, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Offset())

	require.NoError(t, b.Free())
	require.NoError(t, c.Free())
	assert.Equal(t, uint64(0), pool.Used())
	assert.Equal(t, uint64(228), pool.Peak())

	whole, err := pool.Alloc(1024, 1)
	require.NoError(t, err, "free regions must coalesce back into one")
	require.NoError(t, whole.Free())
	require.NoError(t, pool.Destroy())
}

func TestPoolErrors(t *testing.T) {
	pool, err := gfx.NewMemoryPool(openSoft(t), "image", 512, gfx.MemImage)
	require.NoError(t, err)

	_, err = pool.Alloc(0, 1)
	assert.Error(t, err)

	_, err = pool.Alloc(513, 1)
	assert.ErrorIs(t, err, gfx.ErrPoolExhausted)

	a, err := pool.Alloc(256, 256)
	require.NoError(t, err)
	assert.ErrorIs(t, pool.Destroy(), gfx.ErrPoolBusy)

	_, err = a.Bytes()
	assert.Error(t, err, "image memory is not host visible")

	require.NoError(t, a.Free())
	assert.ErrorIs(t, a.Free(), gfx.ErrDoubleFree)

	require.NoError(t, pool.Destroy())
	require.NoError(t, pool.Destroy())
	_, err = pool.Alloc(16, 1)
	assert.ErrorIs(t, err, gfx.ErrPoolDestroyed)
}

func TestAllocationBytes(t *testing.T) {
	pool, err := gfx.NewMemoryPool(openSoft(t), "data", 256, gfx.MemCPUUncached|gfx.MemGPUCached)
	require.NoError(t, err)

	_, err = pool.Alloc(16, 1)
	require.NoError(t, err)
	a, err := pool.Alloc(32, 16)
	require.NoError(t, err)

	buf, err := a.Bytes()
	require.NoError(t, err)
	assert.Len(t, buf, 32)
	buf[0] = 0xAB

	whole, err := pool.Block().Map()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), whole[16])
}
