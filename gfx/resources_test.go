package gfx_test

import (
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/gfx/softgfx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() gfx.Options {
	opts := gfx.DefaultOptions()
	opts.ImagePoolSize = 64 << 10
	opts.CodePoolSize = 4 << 10
	opts.DataPoolSize = 128 << 10
	opts.CmdMemSize = 4 << 10
	opts.ClearColor = [4]float32{1, 0, 0, 1}
	return opts
}

func newManager(t *testing.T, b *softgfx.Backend) *gfx.ResourceManager {
	t.Helper()
	rm, err := gfx.NewResourceManager(b, nil, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rm.Destroy() })
	return rm
}

func TestResourceManagerInitialize(t *testing.T) {
	b := &softgfx.Backend{Trace: &softgfx.Trace{}}
	rm := newManager(t, b)

	assert.Equal(t, uint64(64<<10), rm.ImagePool().Size())
	assert.Equal(t, uint64(4<<10), rm.CodePool().Size())
	assert.Equal(t, uint64(4<<10), rm.DataPool().Used(), "command memory comes from the data pool")
	assert.Equal(t, uint64(0), rm.ImagePool().Used())
	assert.False(t, rm.HasFramebuffers())
	assert.Equal(t, 3, b.Trace.Count(softgfx.KindNewBlock))
}

func TestDestroyFramebufferResourcesIdempotent(t *testing.T) {
	b := &softgfx.Backend{Trace: &softgfx.Trace{}}
	rm := newManager(t, b)

	require.NoError(t, rm.DestroyFramebufferResources())
	require.NoError(t, rm.DestroyFramebufferResources())
	assert.Zero(t, b.Trace.Count(softgfx.KindWaitIdle), "no swapchain, nothing to wait for")

	require.NoError(t, rm.CreateFramebufferResources(8, 4))
	require.NoError(t, rm.DestroyFramebufferResources())
	require.NoError(t, rm.DestroyFramebufferResources())
	assert.Equal(t, 1, b.Trace.Count(softgfx.KindWaitIdle))
}

func TestFramebufferCycleReturnsToBaseline(t *testing.T) {
	b := &softgfx.Backend{}
	rm := newManager(t, b)
	dev := rm.Device().(*softgfx.Device)

	imageBase, dataBase := rm.ImagePool().Used(), rm.DataPool().Used()
	for _, dims := range [][2]int{{8, 4}, {4, 8}, {16, 16}, {8, 4}} {
		require.NoError(t, rm.CreateFramebufferResources(dims[0], dims[1]))
		w, h := rm.Dimensions()
		assert.Equal(t, dims, [2]int{w, h})
		assert.Equal(t, 1+gfx.NumFramebuffers, rm.ImagePool().Live())
		assert.Equal(t, 1+gfx.NumFramebuffers, dev.LiveImages())

		require.NoError(t, rm.DestroyFramebufferResources())
		assert.Equal(t, imageBase, rm.ImagePool().Used())
		assert.Equal(t, dataBase, rm.DataPool().Used())
		assert.Zero(t, dev.LiveImages())
	}
	w, h := rm.Dimensions()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestTeardownWaitsIdleBeforeReleasingImages(t *testing.T) {
	b := &softgfx.Backend{Trace: &softgfx.Trace{}}
	rm := newManager(t, b)
	require.NoError(t, rm.CreateFramebufferResources(8, 4))
	require.NoError(t, rm.AcquireAndPresent())

	b.Trace.Reset()
	require.NoError(t, rm.DestroyFramebufferResources())

	assert.Equal(t, []string{
		"wait-idle",
		"destroy-swapchain",
		"destroy-image(RGBA8Unorm)",
		"destroy-image(RGBA8Unorm)",
		"destroy-image(Depth32F)",
	}, b.Trace.Strings())
}

func TestAcquireAndPresentOrder(t *testing.T) {
	var presented []byte
	b := &softgfx.Backend{
		Trace: &softgfx.Trace{},
		OnPresent: func(slot int, layout gfx.ImageLayout, pix []byte) {
			presented = append(presented[:0], pix...)
		},
	}
	rm := newManager(t, b)
	require.NoError(t, rm.CreateFramebufferResources(8, 4))

	mem, err := rm.DataPool().Alloc(1024, 16)
	require.NoError(t, err)
	defer mem.Free()
	cb := gfx.NewCmdBuf()
	cb.AddMemory(mem)
	cb.SetScissor(gfx.Rect{Width: 1, Height: 1})
	cb.ClearColor([4]float32{0, 0, 1, 1})
	frameList, err := cb.FinishList()
	require.NoError(t, err)

	b.Trace.Reset()
	require.NoError(t, rm.AcquireAndPresent(frameList))
	require.NoError(t, rm.AcquireAndPresent(frameList))

	assert.Equal(t, []string{
		"acquire(0)", "submit(bind-targets)", "submit(viewport)", "submit(scissor)", "present(0)",
		"acquire(1)", "submit(bind-targets)", "submit(viewport)", "submit(scissor)", "present(1)",
	}, b.Trace.Strings())

	require.Len(t, presented, 8*4*4)
	assert.Equal(t, []byte{0, 0, 255, 255}, presented[0:4], "frame list drew the first texel")
	assert.Equal(t, []byte{255, 0, 0, 255}, presented[4:8], "static list cleared the rest")
}

func TestResourceOrder(t *testing.T) {
	rm := newManager(t, &softgfx.Backend{})

	assert.ErrorIs(t, rm.AcquireAndPresent(), gfx.ErrResourceOrder)
	require.NoError(t, rm.CreateFramebufferResources(8, 4))
	assert.ErrorIs(t, rm.CreateFramebufferResources(8, 4), gfx.ErrResourceOrder)

	require.NoError(t, rm.Destroy())
	assert.ErrorIs(t, rm.CreateFramebufferResources(8, 4), gfx.ErrResourceOrder)
}

func TestCreateFramebufferResourcesRollsBack(t *testing.T) {
	b := &softgfx.Backend{
		Fail: func(kind string) error {
			if kind == softgfx.KindNewSwapchain {
				return errors.New("surface lost")
			}
			return nil
		},
	}
	rm := newManager(t, b)

	err := rm.CreateFramebufferResources(8, 4)
	require.Error(t, err)
	var be *gfx.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, softgfx.KindNewSwapchain, be.Context)
	assert.Equal(t, "surface lost", be.Message)

	assert.Zero(t, rm.ImagePool().Used())
	assert.Zero(t, rm.Device().(*softgfx.Device).LiveImages())
	assert.False(t, rm.HasFramebuffers())
}

func TestResourceManagerDestroy(t *testing.T) {
	b := &softgfx.Backend{Trace: &softgfx.Trace{}}
	rm, err := gfx.NewResourceManager(b, nil, testOptions())
	require.NoError(t, err)
	dev := rm.Device().(*softgfx.Device)
	require.NoError(t, rm.CreateFramebufferResources(8, 4))

	require.NoError(t, rm.Destroy())
	require.NoError(t, rm.Destroy())
	assert.Zero(t, dev.LiveBlocks())
	assert.Zero(t, dev.LiveImages())
	assert.Equal(t, 1, b.Trace.Count(softgfx.KindDestroyDevice))
	assert.Less(t, b.Trace.Index(softgfx.KindWaitIdle, 0), b.Trace.Index(softgfx.KindDestroyBlock, 0))
}

func TestOpenFailure(t *testing.T) {
	b := &softgfx.Backend{Fail: func(kind string) error {
		if kind == softgfx.KindOpen {
			return errors.New("no device")
		}
		return nil
	}}
	_, err := gfx.NewResourceManager(b, nil, testOptions())
	var be *gfx.BackendError
	assert.True(t, errors.As(err, &be))
}
