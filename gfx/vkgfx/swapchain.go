package vkgfx

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// swapchain rotates the framebuffer color images. Each presented slot is
// blitted onto the acquired window image, so the window may be any size.
type swapchain struct {
	dev    *Device
	window SurfaceProvider
	images []*image

	handle    vk.Swapchain
	format    vk.SurfaceFormat
	extent    vk.Extent2D
	winImages []vk.Image
	winIndex  uint32
	next      int
	stale     bool
	destroyed bool
}

func (s *swapchain) Slots() int { return len(s.images) }

// create builds the window swapchain, replacing the previous one.
func (s *swapchain) create() error {
	d := s.dev
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu, d.surface, &caps)
	if isError(ret) {
		return newError(ret, "vkGetPhysicalDeviceSurfaceCapabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	format, err := s.selectFormat()
	if err != nil {
		return err
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		w, h := s.window.FramebufferSize()
		extent = vk.Extent2D{
			Width:  clampU32(uint32(w), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
			Height: clampU32(uint32(h), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
		}
	}
	if extent.Width == 0 || extent.Height == 0 {
		// minimized; try again on the next acquire
		s.stale = true
		return nil
	}

	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	preTransform := vk.SurfaceTransformIdentityBit
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&preTransform == 0 {
		preTransform = caps.CurrentTransform
	}
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	old := s.handle
	var handle vk.Swapchain
	ret = vk.CreateSwapchain(d.device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    count,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		// FIFO is the only present mode every implementation supports
		PresentMode:  vk.PresentModeFifo,
		OldSwapchain: old,
		Clipped:      vk.True,
	}, nil, &handle)
	if isError(ret) {
		return newError(ret, "vkCreateSwapchain")
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(d.device, old, nil)
	}
	s.handle, s.format, s.extent = handle, format, extent

	var n uint32
	ret = vk.GetSwapchainImages(d.device, handle, &n, nil)
	if isError(ret) {
		return newError(ret, "vkGetSwapchainImages")
	}
	s.winImages = make([]vk.Image, n)
	ret = vk.GetSwapchainImages(d.device, handle, &n, s.winImages)
	if isError(ret) {
		return newError(ret, "vkGetSwapchainImages")
	}
	s.stale = false
	return nil
}

// selectFormat prefers an 8 bit BGRA or RGBA format, falling back to the
// first one the surface reports.
func (s *swapchain) selectFormat() (vk.SurfaceFormat, error) {
	d := s.dev
	var n uint32
	ret := vk.GetPhysicalDeviceSurfaceFormats(d.gpu, d.surface, &n, nil)
	if isError(ret) {
		return vk.SurfaceFormat{}, newError(ret, "vkGetPhysicalDeviceSurfaceFormats")
	}
	if n == 0 {
		return vk.SurfaceFormat{}, errors.New("vkgfx: surface reports no formats")
	}
	formats := make([]vk.SurfaceFormat, n)
	ret = vk.GetPhysicalDeviceSurfaceFormats(d.gpu, d.surface, &n, formats)
	if isError(ret) {
		return vk.SurfaceFormat{}, newError(ret, "vkGetPhysicalDeviceSurfaceFormats")
	}
	for i := range formats {
		formats[i].Deref()
	}
	if formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: formats[0].ColorSpace}, nil
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm || f.Format == vk.FormatR8g8b8a8Unorm {
			return f, nil
		}
	}
	return formats[0], nil
}

func (s *swapchain) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.dev.device, s.handle, nil)
		s.handle = vk.NullSwapchain
	}
	s.winImages = nil
}

func clampU32(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}
