package gfx

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// Options size the pools and fix the static frame state.
type Options struct {
	ImagePoolSize uint64
	CodePoolSize  uint64
	DataPoolSize  uint64
	CmdMemSize    uint64
	ClearColor    [4]float32
}

// DefaultOptions returns the stock pool sizes and clear color.
func DefaultOptions() Options {
	return Options{
		ImagePoolSize: DefaultImagePoolSize,
		CodePoolSize:  DefaultCodePoolSize,
		DataPoolSize:  DefaultDataPoolSize,
		CmdMemSize:    CmdMemSize,
		ClearColor:    [4]float32{0.2, 0.3, 0.3, 1},
	}
}

type resourceState uint8

const (
	stateUninitialized resourceState = iota
	stateReady                       // device, queue, pools and command memory exist
	stateBound                       // framebuffers, swapchain and static lists exist
	stateDestroyed
)

func (s resourceState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateBound:
		return "bound"
	case stateDestroyed:
		return "destroyed"
	}
	return "uninitialized"
}

// poolImage is an image together with the pool region backing it.
type poolImage struct {
	img Image
	mem *Allocation
}

func (p *poolImage) release() error {
	p.img.Destroy()
	return p.mem.Free()
}

// ResourceManager owns the device, the queue, the memory pools, the
// framebuffer set, the swapchain and the persistent command lists, and
// sequences their creation and destruction.
type ResourceManager struct {
	state resourceState
	opts  Options

	dev   Device
	queue Queue
	win   NativeWindow

	imagePool *MemoryPool
	codePool  *MemoryPool
	dataPool  *MemoryPool

	cmdMem *Allocation
	cmdbuf *CmdBuf

	depth     *poolImage
	colors    []*poolImage
	bindLists []*CmdList
	static    *CmdList
	swapchain Swapchain

	width, height int
}

// NewResourceManager opens the device with a logging diagnostic callback and
// creates the queue, the three memory pools and the persistent command buffer.
func NewResourceManager(open Opener, win NativeWindow, opts Options) (*ResourceManager, error) {
	r := &ResourceManager{opts: opts, win: win}
	dev, err := open.Open(debugCallback)
	if err != nil {
		return nil, errors.Wrap(err, "opening device")
	}
	r.dev = dev
	r.queue = dev.Queue()

	if err := r.initPools(); err != nil {
		r.teardownPools()
		dev.Destroy()
		return nil, err
	}
	r.state = stateReady
	Logger().Info("graphics resources initialized",
		"image_pool", opts.ImagePoolSize, "code_pool", opts.CodePoolSize, "data_pool", opts.DataPoolSize)
	return r, nil
}

func (r *ResourceManager) initPools() (err error) {
	if r.imagePool, err = NewMemoryPool(r.dev, "image", r.opts.ImagePoolSize, MemGPUCached|MemImage); err != nil {
		return err
	}
	if r.codePool, err = NewMemoryPool(r.dev, "code", r.opts.CodePoolSize, MemCPUUncached|MemGPUCached|MemCode); err != nil {
		return err
	}
	if r.dataPool, err = NewMemoryPool(r.dev, "data", r.opts.DataPoolSize, MemCPUUncached|MemGPUCached); err != nil {
		return err
	}
	if r.cmdMem, err = r.dataPool.Alloc(r.opts.CmdMemSize, 256); err != nil {
		return errors.Wrap(err, "allocating command memory")
	}
	r.cmdbuf = NewCmdBuf()
	r.cmdbuf.AddMemory(r.cmdMem)
	return nil
}

// debugCallback only logs; it never blocks and never fails.
func debugCallback(level slog.Level, code int, msg string) {
	Logger().Log(context.Background(), level, "backend diagnostic", "code", code, "message", msg)
}

func (r *ResourceManager) Device() Device         { return r.dev }
func (r *ResourceManager) Queue() Queue           { return r.queue }
func (r *ResourceManager) ImagePool() *MemoryPool { return r.imagePool }
func (r *ResourceManager) CodePool() *MemoryPool  { return r.codePool }
func (r *ResourceManager) DataPool() *MemoryPool  { return r.dataPool }

// Dimensions returns the size of the current framebuffer set, or zero when
// none exists.
func (r *ResourceManager) Dimensions() (int, int) {
	return r.width, r.height
}

// HasFramebuffers reports whether a swapchain and its framebuffers exist.
func (r *ResourceManager) HasFramebuffers() bool {
	return r.swapchain != nil
}

// CreateFramebufferResources allocates the depth and color images, records
// the per-slot bind lists, builds the swapchain and records the static list
// for a width x height target.
func (r *ResourceManager) CreateFramebufferResources(width, height int) error {
	if r.state != stateReady {
		return errors.Wrapf(ErrResourceOrder, "create framebuffers while %s", r.state)
	}
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid framebuffer size %dx%d", width, height)
	}
	if err := r.createFramebuffers(width, height); err != nil {
		r.releaseFramebuffers()
		return err
	}
	r.width, r.height = width, height
	r.state = stateBound
	Logger().Info("framebuffer resources created", "width", width, "height", height, "slots", len(r.colors))
	return nil
}

func (r *ResourceManager) createFramebuffers(width, height int) (err error) {
	if r.depth, err = r.newPoolImage(DepthLayout(width, height)); err != nil {
		return errors.Wrap(err, "depth image")
	}
	images := make([]Image, 0, NumFramebuffers)
	for i := 0; i < NumFramebuffers; i++ {
		color, err := r.newPoolImage(ColorLayout(width, height))
		if err != nil {
			return errors.Wrapf(err, "color image %d", i)
		}
		r.colors = append(r.colors, color)
		images = append(images, color.img)

		r.cmdbuf.BindRenderTargets(color.img, r.depth.img)
		list, err := r.cmdbuf.FinishList()
		if err != nil {
			return errors.Wrapf(err, "recording bind list %d", i)
		}
		r.bindLists = append(r.bindLists, list)
	}

	if r.swapchain, err = r.dev.NewSwapchain(r.win, images); err != nil {
		return errors.Wrap(err, "creating swapchain")
	}

	r.recordStatic(width, height)
	if r.static, err = r.cmdbuf.FinishList(); err != nil {
		return errors.Wrap(err, "recording static list")
	}
	return nil
}

func (r *ResourceManager) recordStatic(width, height int) {
	c := r.cmdbuf
	c.SetViewport(Viewport{Width: float32(width), Height: float32(height), Near: 0, Far: 1})
	c.SetScissor(Rect{Width: width, Height: height})
	c.ClearColor(r.opts.ClearColor)
	c.ClearDepthStencil(1, 0)
	c.BindRasterizerState(RasterizerState{Cull: CullNone})
	c.BindColorState(ColorState{BlendEnable: true})
	c.BindColorWriteState(ColorMaskRGBA)
	c.BindBlendState(BlendState{Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha})
}

func (r *ResourceManager) newPoolImage(layout ImageLayout) (*poolImage, error) {
	req, err := r.dev.ImageRequirements(layout)
	if err != nil {
		return nil, err
	}
	mem, err := r.imagePool.Alloc(req.Size, req.Align)
	if err != nil {
		return nil, err
	}
	img, err := r.dev.NewImage(layout, r.imagePool.Block(), mem.Offset())
	if err != nil {
		_ = mem.Free()
		return nil, err
	}
	return &poolImage{img: img, mem: mem}, nil
}

// DestroyFramebufferResources waits for the queue to go idle, clears the
// persistent command buffer, destroys the swapchain and frees the color and
// depth images, in that order. It does nothing when no swapchain exists.
func (r *ResourceManager) DestroyFramebufferResources() error {
	if r.swapchain == nil {
		return nil
	}
	if err := r.queue.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for queue idle")
	}
	if err := r.releaseFramebuffers(); err != nil {
		return err
	}
	r.state = stateReady
	Logger().Info("framebuffer resources destroyed")
	return nil
}

// releaseFramebuffers frees whatever part of the framebuffer set exists. The
// queue must already be idle.
func (r *ResourceManager) releaseFramebuffers() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	r.cmdbuf.Clear()
	r.bindLists = nil
	r.static = nil
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	for _, c := range r.colors {
		keep(c.release())
	}
	r.colors = nil
	if r.depth != nil {
		keep(r.depth.release())
		r.depth = nil
	}
	r.width, r.height = 0, 0
	return firstErr
}

// AcquireAndPresent acquires the next swapchain slot, submits its bind list,
// the static list and the given per-frame lists, then presents the slot.
func (r *ResourceManager) AcquireAndPresent(frame ...*CmdList) error {
	if r.state != stateBound {
		return errors.Wrapf(ErrResourceOrder, "present while %s", r.state)
	}
	slot, err := r.queue.AcquireImage(r.swapchain)
	if err != nil {
		return errors.Wrap(err, "acquiring image")
	}
	if slot < 0 || slot >= len(r.bindLists) {
		return errors.Errorf("acquired slot %d out of range", slot)
	}
	if err := r.queue.Submit(r.bindLists[slot]); err != nil {
		return errors.Wrap(err, "submitting bind list")
	}
	if err := r.queue.Submit(r.static); err != nil {
		return errors.Wrap(err, "submitting static list")
	}
	for _, l := range frame {
		if err := r.queue.Submit(l); err != nil {
			return errors.Wrap(err, "submitting frame list")
		}
	}
	if err := r.queue.Present(r.swapchain, slot); err != nil {
		return errors.Wrap(err, "presenting")
	}
	return nil
}

// Destroy tears everything down in reverse creation order and destroys the
// device. Calling it again does nothing.
func (r *ResourceManager) Destroy() error {
	if r.state == stateDestroyed || r.dev == nil {
		return nil
	}
	if err := r.DestroyFramebufferResources(); err != nil {
		return err
	}
	if err := r.teardownPools(); err != nil {
		return err
	}
	r.dev.Destroy()
	r.state = stateDestroyed
	Logger().Info("graphics resources destroyed")
	return nil
}

func (r *ResourceManager) teardownPools() error {
	if r.cmdbuf != nil {
		r.cmdbuf.Clear()
	}
	if r.cmdMem != nil {
		if err := r.cmdMem.Free(); err != nil {
			return err
		}
		r.cmdMem = nil
	}
	for _, p := range []*MemoryPool{r.dataPool, r.codePool, r.imagePool} {
		if p == nil {
			continue
		}
		if err := p.Destroy(); err != nil {
			return err
		}
	}
	return nil
}
