package gfx

// NumFramebuffers is the number of color images rotated by the swapchain.
const NumFramebuffers = 2

// ColorLayout is the layout of one framebuffer color image.
func ColorLayout(width, height int) ImageLayout {
	return ImageLayout{
		Width:  width,
		Height: height,
		Format: FormatRGBA8Unorm,
		Flags:  UsageRender | UsagePresent | UsageTransferDst | HwCompression,
	}
}

// DepthLayout is the layout of the shared depth image.
func DepthLayout(width, height int) ImageLayout {
	return ImageLayout{
		Width:  width,
		Height: height,
		Format: FormatDepth32F,
		Flags:  UsageRender | HwCompression,
	}
}
