package gfx

import "log/slog"

// Format is the pixel format of an image.
type Format uint8

const (
	FormatUndefined Format = iota
	FormatRGBA8Unorm
	FormatDepth32F
)

// BytesPerPixel returns the storage size of one texel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8Unorm, FormatDepth32F:
		return 4
	}
	return 0
}

// IsDepth reports whether the format is a depth format.
func (f Format) IsDepth() bool {
	return f == FormatDepth32F
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "RGBA8Unorm"
	case FormatDepth32F:
		return "Depth32F"
	}
	return "Undefined"
}

// ImageFlags describe how an image is going to be used.
type ImageFlags uint32

const (
	UsageRender ImageFlags = 1 << iota
	UsagePresent
	UsageTransferDst
	HwCompression
)

func (f ImageFlags) Has(flag ImageFlags) bool {
	return f&flag == flag
}

// MemFlags describe the caching and content of a memory block.
type MemFlags uint32

const (
	MemCPUUncached MemFlags = 1 << iota
	MemGPUCached
	MemImage
	MemCode
)

func (f MemFlags) Has(flag MemFlags) bool {
	return f&flag == flag
}

// HostVisible reports whether the CPU can write the block.
func (f MemFlags) HostVisible() bool {
	return f.Has(MemCPUUncached)
}

// ImageLayout is the backend independent description of a 2D image.
type ImageLayout struct {
	Width  int
	Height int
	Format Format
	Flags  ImageFlags
}

// Stride returns the byte length of one row.
func (l ImageLayout) Stride() int {
	return l.Width * l.Format.BytesPerPixel()
}

// MemoryRequirements is the size and alignment a backend needs for an image.
type MemoryRequirements struct {
	Size  uint64
	Align uint64
}

// NativeWindow is the platform window a swapchain presents to.
// Backends type assert it to their own window type.
type NativeWindow any

// DebugFunc receives diagnostics from the backend. It must not block and must
// not fail: implementations only log.
type DebugFunc func(level slog.Level, code int, msg string)

// Opener creates the process-wide Device.
type Opener interface {
	Open(debug DebugFunc) (Device, error)
}

// Device is the process-wide handle to the graphics backend. It owns the
// Queue and, transitively, every memory block, image and swapchain.
type Device interface {
	Queue() Queue
	NewMemoryBlock(size uint64, flags MemFlags) (MemoryBlock, error)
	ImageRequirements(layout ImageLayout) (MemoryRequirements, error)
	NewImage(layout ImageLayout, mem MemoryBlock, offset uint64) (Image, error)
	NewSwapchain(win NativeWindow, images []Image) (Swapchain, error)
	Destroy()
}

// Queue is the single submission channel of a Device.
type Queue interface {
	// AcquireImage blocks until a swapchain slot is free and returns its index.
	AcquireImage(sc Swapchain) (int, error)
	Submit(list *CmdList) error
	// WaitIdle blocks until every submitted list has completed.
	WaitIdle() error
	Present(sc Swapchain, slot int) error
}

// MemoryBlock is a contiguous region of backend memory.
type MemoryBlock interface {
	Size() uint64
	Flags() MemFlags
	// Map returns the CPU view of a host visible block.
	Map() ([]byte, error)
	Destroy()
}

// Image is a 2D image bound to a MemoryBlock region.
type Image interface {
	Layout() ImageLayout
	Destroy()
}

// Swapchain rotates the framebuffer color images onto the window.
type Swapchain interface {
	Slots() int
	Destroy()
}
