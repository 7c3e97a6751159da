package ui

import (
	"github.com/andewx/nxshell/gfx"
	"github.com/gogpu/gg"
	"github.com/pkg/errors"
)

var (
	ErrFrameInProgress = errors.New("ui: frame already begun")
	ErrNoFrame         = errors.New("ui: no frame in progress")
	ErrRendererClosed  = errors.New("ui: renderer closed")
)

// FrameCmdSize is the command memory a renderer takes from the data pool.
const FrameCmdSize = 4 << 10

// Renderer rasterizes vector frames into a CPU pixmap and turns each frame
// into a command list that uploads it to the bound color target. It caches
// dimension dependent state and must be rebuilt when the framebuffer size
// changes.
type Renderer struct {
	width, height int

	pm *gg.Pixmap
	dc *gg.Context

	staging *gfx.MemoryPool
	upload  *gfx.Allocation
	cmdMem  *gfx.Allocation
	cmdbuf  *gfx.CmdBuf

	inFrame bool
	closed  bool
}

// NewRenderer creates a renderer for width x height frames. Upload memory
// comes from a dedicated host visible pool on dev; command memory comes from
// data.
func NewRenderer(dev gfx.Device, data *gfx.MemoryPool, width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid renderer size %dx%d", width, height)
	}
	r := &Renderer{width: width, height: height}
	size := uint64(width * height * 4)

	var err error
	if r.staging, err = gfx.NewMemoryPool(dev, "staging", size, gfx.MemCPUUncached|gfx.MemGPUCached); err != nil {
		return nil, err
	}
	if r.upload, err = r.staging.Alloc(size, 1); err != nil {
		r.Close()
		return nil, err
	}
	if r.cmdMem, err = data.Alloc(FrameCmdSize, 256); err != nil {
		r.Close()
		return nil, errors.Wrap(err, "allocating frame command memory")
	}
	r.cmdbuf = gfx.NewCmdBuf()
	r.cmdbuf.AddMemory(r.cmdMem)

	r.pm = gg.NewPixmap(width, height)
	r.dc = gg.NewContext(width, height, gg.WithPixmap(r.pm))
	Logger().Debug("renderer created", "width", width, "height", height)
	return r, nil
}

// Dimensions returns the frame size the renderer was built for.
func (r *Renderer) Dimensions() (int, int) { return r.width, r.height }

// BeginFrame clears the canvas and returns the drawing context for a frame.
// It fails while the previous frame is unterminated.
func (r *Renderer) BeginFrame() (*gg.Context, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.inFrame {
		return nil, ErrFrameInProgress
	}
	r.inFrame = true
	r.cmdbuf.Clear()
	r.dc.Identity()
	r.dc.ClearPath()
	r.dc.ClearWithColor(gg.Transparent)
	return r.dc, nil
}

// EndFrame finishes the frame begun by BeginFrame and returns the command
// list that copies it into the bound color target. The list is valid until
// the next BeginFrame.
func (r *Renderer) EndFrame() (*gfx.CmdList, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	if !r.inFrame {
		return nil, ErrNoFrame
	}
	r.inFrame = false

	dst, err := r.upload.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "mapping upload memory")
	}
	copy(dst, r.pm.Data())
	r.cmdbuf.CopyBufferToTarget(r.upload, r.width*4)
	return r.cmdbuf.FinishList()
}

// Pixels returns the canvas of the last frame, RGBA row major.
func (r *Renderer) Pixels() []byte { return r.pm.Data() }

// Close releases the canvas and returns all memory to its pools. It is safe
// to call more than once.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if r.dc != nil {
		keep(r.dc.Close())
	}
	if r.cmdbuf != nil {
		r.cmdbuf.Clear()
	}
	if r.cmdMem != nil {
		keep(r.cmdMem.Free())
	}
	if r.upload != nil {
		keep(r.upload.Free())
	}
	if r.staging != nil {
		keep(r.staging.Destroy())
	}
	Logger().Debug("renderer closed", "width", r.width, "height", r.height)
	return first
}
