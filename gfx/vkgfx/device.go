package vkgfx

import (
	"unsafe"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Device is a Vulkan gfx.Device. It owns the instance, the surface, the
// logical device and the per frame synchronization objects.
type Device struct {
	backend *Backend
	debug   gfx.DebugFunc
	queue   *Queue

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
	layers        []string

	gpu              vk.PhysicalDevice
	gpuName          string
	memoryProperties vk.PhysicalDeviceMemoryProperties
	queueIndex       uint32
	device           vk.Device
	vkQueue          vk.Queue

	cmds       *CommandBufferManager
	fences     *FenceManager
	acquireSem vk.Semaphore
	releaseSem vk.Semaphore

	passColor      vk.RenderPass
	passColorDepth vk.RenderPass

	// imageTypeBits are the memory types every framebuffer image accepts.
	imageTypeBits uint32

	destroyed bool
}

func (d *Device) Queue() gfx.Queue { return d.queue }

// vkFormat maps a gfx format onto its Vulkan format.
func vkFormat(f gfx.Format) vk.Format {
	switch f {
	case gfx.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gfx.FormatDepth32F:
		return vk.FormatD32Sfloat
	}
	return vk.FormatUndefined
}

func aspectOf(f gfx.Format) vk.ImageAspectFlags {
	if f.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func imageUsage(l gfx.ImageLayout) vk.ImageUsageFlags {
	var usage vk.ImageUsageFlagBits
	if l.Flags.Has(gfx.UsageRender) {
		if l.Format.IsDepth() {
			usage |= vk.ImageUsageDepthStencilAttachmentBit
		} else {
			usage |= vk.ImageUsageColorAttachmentBit
		}
	}
	if l.Flags.Has(gfx.UsagePresent) {
		usage |= vk.ImageUsageTransferSrcBit
	}
	if l.Flags.Has(gfx.UsageTransferDst) {
		usage |= vk.ImageUsageTransferDstBit
	}
	return vk.ImageUsageFlags(usage)
}

// findMemoryType returns the first memory type allowed by typeBits that has
// every property in want.
func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < props.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		flags := props.MemoryTypes[i].PropertyFlags
		if flags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, true
		}
	}
	return 0, false
}

// findMemoryTypeFallback drops the wanted properties when no type has them.
func findMemoryTypeFallback(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	if i, ok := findMemoryType(props, typeBits, want); ok {
		return i, true
	}
	if want != 0 {
		return findMemoryType(props, typeBits, 0)
	}
	return 0, false
}

func (d *Device) createImage(l gfx.ImageLayout) (vk.Image, error) {
	var img vk.Image
	ret := vk.CreateImage(d.device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vkFormat(l.Format),
		Extent:        vk.Extent3D{Width: uint32(l.Width), Height: uint32(l.Height), Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(l),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	return img, newError(ret, "vkCreateImage")
}

func (d *Device) requirements(img vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, img, &reqs)
	reqs.Deref()
	return reqs
}

// probeImageMemory intersects the memory types of a color and a depth image
// so an image pool block can hold both.
func (d *Device) probeImageMemory() {
	bits := ^uint32(0)
	for _, l := range []gfx.ImageLayout{gfx.ColorLayout(16, 16), gfx.DepthLayout(16, 16)} {
		img, err := d.createImage(l)
		orPanic(err)
		bits &= d.requirements(img).MemoryTypeBits
		vk.DestroyImage(d.device, img, nil)
	}
	if bits == 0 {
		orPanic(errors.New("vkgfx: no memory type holds both color and depth images"))
	}
	d.imageTypeBits = bits
}

func (d *Device) NewMemoryBlock(size uint64, flags gfx.MemFlags) (gfx.MemoryBlock, error) {
	if size == 0 {
		return nil, gfx.NewBackendError("NewMemoryBlock", int(vk.ErrorOutOfDeviceMemory), "zero sized block")
	}
	b := &block{dev: d, size: size, flags: flags}
	if !flags.HostVisible() {
		mem, err := d.allocate(size, d.imageTypeBits, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			return nil, err
		}
		b.mem = mem
		return b, nil
	}

	// host visible blocks are also transfer sources
	ret := vk.CreateBuffer(d.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &b.buffer)
	if isError(ret) {
		return nil, newError(ret, "vkCreateBuffer")
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, b.buffer, &reqs)
	reqs.Deref()
	mem, err := d.allocate(uint64(reqs.Size), reqs.MemoryTypeBits,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		vk.DestroyBuffer(d.device, b.buffer, nil)
		return nil, err
	}
	b.mem = mem
	if ret := vk.BindBufferMemory(d.device, b.buffer, mem, 0); isError(ret) {
		b.Destroy()
		return nil, newError(ret, "vkBindBufferMemory")
	}
	var ptr unsafe.Pointer
	if ret := vk.MapMemory(d.device, mem, 0, vk.DeviceSize(size), 0, &ptr); isError(ret) {
		b.Destroy()
		return nil, newError(ret, "vkMapMemory")
	}
	b.mapped = unsafe.Slice((*byte)(ptr), size)
	return b, nil
}

func (d *Device) allocate(size uint64, typeBits uint32, want vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	memType, ok := findMemoryTypeFallback(d.memoryProperties, typeBits, want)
	if !ok {
		return nil, gfx.NewBackendError("vkAllocateMemory", int(vk.ErrorOutOfDeviceMemory), "no suitable memory type")
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if isError(ret) {
		return nil, newError(ret, "vkAllocateMemory")
	}
	return mem, nil
}

func (d *Device) ImageRequirements(l gfx.ImageLayout) (gfx.MemoryRequirements, error) {
	img, err := d.createImage(l)
	if err != nil {
		return gfx.MemoryRequirements{}, err
	}
	defer vk.DestroyImage(d.device, img, nil)
	reqs := d.requirements(img)
	return gfx.MemoryRequirements{Size: uint64(reqs.Size), Align: uint64(reqs.Alignment)}, nil
}

func (d *Device) NewImage(l gfx.ImageLayout, mem gfx.MemoryBlock, offset uint64) (gfx.Image, error) {
	b, ok := mem.(*block)
	if !ok || b.mem == nil {
		return nil, gfx.NewBackendError("NewImage", int(vk.ErrorInitializationFailed), "foreign memory block")
	}
	handle, err := d.createImage(l)
	if err != nil {
		return nil, err
	}
	img := &image{dev: d, layout: l, handle: handle, current: vk.ImageLayoutUndefined}
	if ret := vk.BindImageMemory(d.device, handle, b.mem, vk.DeviceSize(offset)); isError(ret) {
		vk.DestroyImage(d.device, handle, nil)
		return nil, newError(ret, "vkBindImageMemory")
	}
	ret := vk.CreateImageView(d.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   vkFormat(l.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectOf(l.Format),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &img.view)
	if isError(ret) {
		vk.DestroyImage(d.device, handle, nil)
		return nil, newError(ret, "vkCreateImageView")
	}
	return img, nil
}

func (d *Device) NewSwapchain(win gfx.NativeWindow, images []gfx.Image) (gfx.Swapchain, error) {
	sc := &swapchain{dev: d}
	for _, i := range images {
		img, ok := i.(*image)
		if !ok {
			return nil, gfx.NewBackendError("NewSwapchain", int(vk.ErrorInitializationFailed), "foreign image")
		}
		sc.images = append(sc.images, img)
	}
	if p, ok := win.(SurfaceProvider); ok {
		sc.window = p
	} else {
		sc.window = d.backend.Surface
	}
	if err := sc.create(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Destroy waits for the device to go idle and releases everything Open
// created. It is safe on a partially opened device.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	if d.device != nil {
		vk.DeviceWaitIdle(d.device)
		if d.fences != nil {
			d.fences.Destroy()
		}
		if d.cmds != nil {
			d.cmds.Destroy()
		}
		for _, sem := range []vk.Semaphore{d.acquireSem, d.releaseSem} {
			if sem != vk.NullSemaphore {
				vk.DestroySemaphore(d.device, sem, nil)
			}
		}
		for _, pass := range []vk.RenderPass{d.passColor, d.passColorDepth} {
			if pass != vk.NullRenderPass {
				vk.DestroyRenderPass(d.device, pass, nil)
			}
		}
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
		d.surface = vk.NullSurface
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
		d.debugCallback = vk.NullDebugReportCallback
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

// block is a device memory allocation. Host visible blocks stay mapped and
// carry a buffer spanning the whole block.
type block struct {
	dev    *Device
	size   uint64
	flags  gfx.MemFlags
	mem    vk.DeviceMemory
	buffer vk.Buffer
	mapped []byte
}

func (b *block) Size() uint64        { return b.size }
func (b *block) Flags() gfx.MemFlags { return b.flags }

func (b *block) Map() ([]byte, error) {
	if b.mem == nil {
		return nil, gfx.NewBackendError("Map", int(vk.ErrorMemoryMapFailed), "block destroyed")
	}
	if b.mapped == nil {
		return nil, gfx.NewBackendError("Map", int(vk.ErrorMemoryMapFailed), "block is not host visible")
	}
	return b.mapped, nil
}

func (b *block) Destroy() {
	if b.mem == nil {
		return
	}
	d := b.dev.device
	if b.mapped != nil {
		vk.UnmapMemory(d, b.mem)
		b.mapped = nil
	}
	if b.buffer != vk.NullBuffer {
		vk.DestroyBuffer(d, b.buffer, nil)
		b.buffer = vk.NullBuffer
	}
	vk.FreeMemory(d, b.mem, nil)
	b.mem = nil
}

// image tracks the layout of its Vulkan image as recorded so far.
type image struct {
	dev     *Device
	layout  gfx.ImageLayout
	handle  vk.Image
	view    vk.ImageView
	current vk.ImageLayout

	// framebuffer pairs this color image with fbDepth for clears.
	framebuffer vk.Framebuffer
	fbDepth     *image
}

func (i *image) Layout() gfx.ImageLayout { return i.layout }

func (i *image) Destroy() {
	if i.handle == vk.NullImage {
		return
	}
	d := i.dev.device
	i.dropFramebuffer()
	vk.DestroyImageView(d, i.view, nil)
	vk.DestroyImage(d, i.handle, nil)
	i.handle = vk.NullImage
}

func (i *image) dropFramebuffer() {
	if i.framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(i.dev.device, i.framebuffer, nil)
		i.framebuffer = vk.NullFramebuffer
		i.fbDepth = nil
	}
}
