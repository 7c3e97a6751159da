package softgfx

import (
	"errors"
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTarget(t *testing.T, b *Backend, w, h int) (gfx.Device, *Image, gfx.Swapchain) {
	t.Helper()
	dev, err := b.Open(nil)
	require.NoError(t, err)
	layout := gfx.ColorLayout(w, h)
	req, err := dev.ImageRequirements(layout)
	require.NoError(t, err)
	mem, err := dev.NewMemoryBlock(req.Size, gfx.MemImage)
	require.NoError(t, err)
	img, err := dev.NewImage(layout, mem, 0)
	require.NoError(t, err)
	sc, err := dev.NewSwapchain(nil, []gfx.Image{img})
	require.NoError(t, err)
	return dev, img.(*Image), sc
}

func cmdBuf(t *testing.T, dev gfx.Device) *gfx.CmdBuf {
	t.Helper()
	pool, err := gfx.NewMemoryPool(dev, "cmd", 4<<10, gfx.MemCPUUncached)
	require.NoError(t, err)
	a, err := pool.Alloc(4<<10, 1)
	require.NoError(t, err)
	c := gfx.NewCmdBuf()
	c.AddMemory(a)
	return c
}

func pixel(img *Image, x, y int) []byte {
	off := y*img.layout.Stride() + x*4
	return img.pix[off : off+4]
}

func TestScissoredClear(t *testing.T) {
	dev, img, _ := openTarget(t, &Backend{}, 8, 4)
	c := cmdBuf(t, dev)
	c.BindRenderTargets(img, nil)
	c.ClearColor([4]float32{0, 0, 1, 1})
	c.SetScissor(gfx.Rect{X: 2, Y: 1, Width: 2, Height: 2})
	c.ClearColor([4]float32{1, 0, 0, 1})
	list, err := c.FinishList()
	require.NoError(t, err)

	require.NoError(t, dev.Queue().Submit(list))
	assert.Equal(t, []byte{0, 0, 255, 255}, pixel(img, 0, 0))
	assert.Equal(t, []byte{255, 0, 0, 255}, pixel(img, 2, 1))
	assert.Equal(t, []byte{255, 0, 0, 255}, pixel(img, 3, 2))
	assert.Equal(t, []byte{0, 0, 255, 255}, pixel(img, 4, 2))
	assert.Equal(t, 1, dev.Queue().(*Queue).Submitted())
}

func TestCopyBufferToTarget(t *testing.T) {
	dev, img, _ := openTarget(t, &Backend{}, 2, 2)
	staging, err := gfx.NewMemoryPool(dev, "staging", 64, gfx.MemCPUUncached)
	require.NoError(t, err)
	a, err := staging.Alloc(16, 4)
	require.NoError(t, err)
	data, err := a.Bytes()
	require.NoError(t, err)
	for i := range data {
		data[i] = byte(i)
	}

	c := cmdBuf(t, dev)
	c.BindRenderTargets(img, nil)
	c.CopyBufferToTarget(a, 8)
	list, err := c.FinishList()
	require.NoError(t, err)
	require.NoError(t, dev.Queue().Submit(list))
	assert.Equal(t, data, img.Pix())
}

func TestStaleListRejected(t *testing.T) {
	trace := &Trace{}
	dev, img, _ := openTarget(t, &Backend{Trace: trace}, 2, 2)
	c := cmdBuf(t, dev)
	c.BindRenderTargets(img, nil)
	list, err := c.FinishList()
	require.NoError(t, err)
	c.Clear()

	assert.ErrorIs(t, dev.Queue().Submit(list), gfx.ErrStaleList)
	assert.Equal(t, 1, trace.Count(KindSubmit))
}

func TestPresentAndFailureInjection(t *testing.T) {
	var presented []int
	fail := false
	b := &Backend{
		Trace: &Trace{},
		OnPresent: func(slot int, layout gfx.ImageLayout, pix []byte) {
			presented = append(presented, slot)
			assert.Len(t, pix, layout.Stride()*layout.Height)
		},
		Fail: func(kind string) error {
			if fail && kind == KindPresent {
				return errors.New("device lost")
			}
			return nil
		},
	}
	dev, _, sc := openTarget(t, b, 2, 2)
	q := dev.Queue()

	slot, err := q.AcquireImage(sc)
	require.NoError(t, err)
	require.NoError(t, q.Present(sc, slot))
	assert.Equal(t, []int{0}, presented)

	fail = true
	err = q.Present(sc, slot)
	var be *gfx.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindPresent, be.Context)
	assert.Equal(t, []int{0}, presented)

	dev.Destroy()
	dev.Destroy()
	assert.Equal(t, 1, b.Trace.Count(KindDestroyDevice))
}
