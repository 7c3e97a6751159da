// Package softgfx is a CPU implementation of the gfx backend contracts.
// Memory blocks are byte slices, command lists execute on submit and every
// backend call is appended to a Trace.
package softgfx

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
)

// imageAlign matches the coarsest alignment real drivers report for
// optimal-tiled images.
const imageAlign = 256

// PresentFunc receives the presented color image. pix is only valid for the
// duration of the call.
type PresentFunc func(slot int, layout gfx.ImageLayout, pix []byte)

// Backend opens software devices.
type Backend struct {
	// Trace receives every backend call. May be nil.
	Trace *Trace
	// OnPresent is called for every presented slot. May be nil.
	OnPresent PresentFunc
	// Fail injects backend failures: a non-nil error for a call kind makes
	// that call fail with a gfx.BackendError.
	Fail func(kind string) error
}

// Open implements gfx.Opener.
func (b *Backend) Open(debug gfx.DebugFunc) (gfx.Device, error) {
	d := &Device{backend: b, debug: debug}
	if err := d.check(KindOpen, ""); err != nil {
		return nil, err
	}
	d.queue = &Queue{dev: d}
	if debug != nil {
		debug(slog.LevelInfo, 0, "software device opened")
	}
	return d, nil
}

// Device is a software gfx.Device.
type Device struct {
	backend *Backend
	debug   gfx.DebugFunc
	queue   *Queue

	liveBlocks int
	liveImages int
	destroyed  bool
}

// check records a call and applies failure injection.
func (d *Device) check(kind, detail string) error {
	d.backend.Trace.add(kind, detail)
	if d.backend.Fail == nil {
		return nil
	}
	if err := d.backend.Fail(kind); err != nil {
		if d.debug != nil {
			d.debug(slog.LevelError, -1, err.Error())
		}
		return gfx.NewBackendError(kind, -1, err.Error())
	}
	return nil
}

func (d *Device) Queue() gfx.Queue { return d.queue }

// LiveBlocks returns the number of memory blocks not yet destroyed.
func (d *Device) LiveBlocks() int { return d.liveBlocks }

// LiveImages returns the number of images not yet destroyed.
func (d *Device) LiveImages() int { return d.liveImages }

func (d *Device) NewMemoryBlock(size uint64, flags gfx.MemFlags) (gfx.MemoryBlock, error) {
	if err := d.check(KindNewBlock, fmt.Sprint(size)); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, gfx.NewBackendError("NewMemoryBlock", -2, "zero sized block")
	}
	d.liveBlocks++
	return &block{dev: d, data: make([]byte, size), flags: flags}, nil
}

func (d *Device) ImageRequirements(layout gfx.ImageLayout) (gfx.MemoryRequirements, error) {
	size := uint64(layout.Stride() * layout.Height)
	if size == 0 {
		return gfx.MemoryRequirements{}, gfx.NewBackendError("ImageRequirements", -2,
			fmt.Sprintf("unsupported layout %dx%d %s", layout.Width, layout.Height, layout.Format))
	}
	return gfx.MemoryRequirements{Size: gfx.AlignUp(size, imageAlign), Align: imageAlign}, nil
}

func (d *Device) NewImage(layout gfx.ImageLayout, mem gfx.MemoryBlock, offset uint64) (gfx.Image, error) {
	if err := d.check(KindNewImage, layout.Format.String()); err != nil {
		return nil, err
	}
	b, ok := mem.(*block)
	if !ok {
		return nil, errors.Errorf("softgfx: foreign memory block %T", mem)
	}
	size := uint64(layout.Stride() * layout.Height)
	if offset+size > uint64(len(b.data)) {
		return nil, gfx.NewBackendError("NewImage", -3, "image exceeds memory block")
	}
	d.liveImages++
	return &Image{dev: d, layout: layout, pix: b.data[offset : offset+size]}, nil
}

func (d *Device) NewSwapchain(win gfx.NativeWindow, images []gfx.Image) (gfx.Swapchain, error) {
	if err := d.check(KindNewSwapchain, fmt.Sprint(len(images))); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, gfx.NewBackendError("NewSwapchain", -2, "no images")
	}
	sc := &Swapchain{dev: d, win: win}
	for _, img := range images {
		si, ok := img.(*Image)
		if !ok {
			return nil, errors.Errorf("softgfx: foreign image %T", img)
		}
		sc.images = append(sc.images, si)
	}
	return sc, nil
}

func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.backend.Trace.add(KindDestroyDevice, "")
	d.destroyed = true
}

type block struct {
	dev       *Device
	data      []byte
	flags     gfx.MemFlags
	destroyed bool
}

func (b *block) Size() uint64        { return uint64(len(b.data)) }
func (b *block) Flags() gfx.MemFlags { return b.flags }

func (b *block) Map() ([]byte, error) {
	if b.destroyed {
		return nil, gfx.NewBackendError("Map", -4, "block destroyed")
	}
	if !b.flags.HostVisible() {
		return nil, gfx.NewBackendError("Map", -5, "block is not host visible")
	}
	return b.data, nil
}

func (b *block) Destroy() {
	if b.destroyed {
		return
	}
	b.dev.backend.Trace.add(KindDestroyBlock, fmt.Sprint(len(b.data)))
	b.destroyed = true
	b.dev.liveBlocks--
}

// Image is a software image aliasing a region of its memory block.
type Image struct {
	dev       *Device
	layout    gfx.ImageLayout
	pix       []byte
	destroyed bool
}

func (i *Image) Layout() gfx.ImageLayout { return i.layout }

// Pix returns the image storage: RGBA bytes for color images, little endian
// float32 for depth images.
func (i *Image) Pix() []byte { return i.pix }

func (i *Image) Destroy() {
	if i.destroyed {
		return
	}
	i.dev.backend.Trace.add(KindDestroyImage, i.layout.Format.String())
	i.destroyed = true
	i.dev.liveImages--
}

// Swapchain rotates its images in order.
type Swapchain struct {
	dev       *Device
	win       gfx.NativeWindow
	images    []*Image
	next      int
	acquired  int
	destroyed bool
}

func (s *Swapchain) Slots() int { return len(s.images) }

func (s *Swapchain) Destroy() {
	if s.destroyed {
		return
	}
	s.dev.backend.Trace.add(KindDestroySwapchain, "")
	s.destroyed = true
}

func clamp8(v float32) byte {
	return byte(math.Round(float64(min(max(v, 0), 1)) * 255))
}
