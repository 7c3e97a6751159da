package vkgfx

import (
	"github.com/andewx/nxshell/gfx"
	vk "github.com/vulkan-go/vulkan"
)

// createRenderPasses builds the two passes clears run in: color only and
// color with depth. Attachments load and store their contents and stay in
// their attachment layouts.
func (d *Device) createRenderPasses() error {
	color := vk.AttachmentDescription{
		Format:         vkFormat(gfx.FormatRGBA8Unorm),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
	depth := vk.AttachmentDescription{
		Format:         vkFormat(gfx.FormatDepth32F),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	colorRefs := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	var err error
	d.passColor, err = d.newRenderPass([]vk.AttachmentDescription{color}, vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorRefs,
	})
	if err != nil {
		return err
	}
	d.passColorDepth, err = d.newRenderPass([]vk.AttachmentDescription{color, depth}, vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: &depthRef,
	})
	return err
}

func (d *Device) newRenderPass(attachments []vk.AttachmentDescription, subpass vk.SubpassDescription) (vk.RenderPass, error) {
	var pass vk.RenderPass
	ret := vk.CreateRenderPass(d.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}, nil, &pass)
	return pass, newError(ret, "vkCreateRenderPass")
}

// framebufferFor returns the framebuffer of color paired with depth, which
// may be nil, creating it on first use.
func (d *Device) framebufferFor(color, depth *image) (vk.Framebuffer, vk.RenderPass, error) {
	pass := d.passColor
	views := []vk.ImageView{color.view}
	if depth != nil {
		pass = d.passColorDepth
		views = append(views, depth.view)
	}
	if color.framebuffer != vk.NullFramebuffer && color.fbDepth == depth {
		return color.framebuffer, pass, nil
	}
	color.dropFramebuffer()

	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(d.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(color.layout.Width),
		Height:          uint32(color.layout.Height),
		Layers:          1,
	}, nil, &fb)
	if isError(ret) {
		return vk.NullFramebuffer, pass, newError(ret, "vkCreateFramebuffer")
	}
	color.framebuffer, color.fbDepth = fb, depth
	return fb, pass, nil
}
