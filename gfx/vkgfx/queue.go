package vkgfx

import (
	"log/slog"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Queue records every submitted command list into its own command buffer and
// submits it with a fence. AcquireImage waits for the fences of the previous
// frame, which keeps one frame in flight.
type Queue struct {
	dev *Device

	color   *image
	depth   *image
	scissor gfx.Rect
}

func (q *Queue) AcquireImage(sc gfx.Swapchain) (int, error) {
	s, ok := sc.(*swapchain)
	if !ok || s.destroyed {
		return 0, gfx.NewBackendError("AcquireImage", int(vk.ErrorInitializationFailed), "invalid swapchain")
	}
	d := q.dev
	if err := d.fences.Reset(); err != nil {
		return 0, err
	}
	d.cmds.Reset()

	for attempt := 0; ; attempt++ {
		if s.stale {
			if err := s.create(); err != nil {
				return 0, err
			}
			if s.stale {
				return 0, gfx.NewBackendError("AcquireImage", int(vk.ErrorOutOfDate), "window has no drawable area")
			}
		}
		var idx uint32
		ret := vk.AcquireNextImage(d.device, s.handle, vk.MaxUint64, d.acquireSem, vk.NullFence, &idx)
		if ret == vk.ErrorOutOfDate && attempt == 0 {
			d.log(slog.LevelDebug, int(ret), "swapchain out of date, recreating")
			s.stale = true
			continue
		}
		if ret != vk.Success && ret != vk.Suboptimal {
			return 0, newError(ret, "vkAcquireNextImage")
		}
		s.winIndex = idx
		break
	}

	slot := s.next
	s.next = (s.next + 1) % len(s.images)
	return slot, nil
}

// begin returns a command buffer ready for recording.
func (q *Queue) begin() (vk.CommandBuffer, error) {
	cmd, err := q.dev.cmds.NewCommandBuffer()
	if err != nil {
		return nil, err
	}
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	return cmd, newError(ret, "vkBeginCommandBuffer")
}

// submit ends cmd and submits it with a fence. wait and signal may be null.
func (q *Queue) submit(cmd vk.CommandBuffer, wait, signal vk.Semaphore) error {
	d := q.dev
	if ret := vk.EndCommandBuffer(cmd); isError(ret) {
		return newError(ret, "vkEndCommandBuffer")
	}
	fence, err := d.fences.NewFence()
	if err != nil {
		return err
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if wait != vk.NullSemaphore {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{wait}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)}
	}
	if signal != vk.NullSemaphore {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{signal}
	}
	return newError(vk.QueueSubmit(d.vkQueue, 1, []vk.SubmitInfo{info}, fence), "vkQueueSubmit")
}

func (q *Queue) Submit(list *gfx.CmdList) error {
	if err := gfx.CheckList(list); err != nil {
		return err
	}
	cmd, err := q.begin()
	if err != nil {
		return err
	}
	for _, op := range list.Ops() {
		if err := q.record(cmd, op); err != nil {
			vk.EndCommandBuffer(cmd)
			return errors.Wrapf(err, "recording %s", op.Kind)
		}
	}
	return q.submit(cmd, vk.NullSemaphore, vk.NullSemaphore)
}

func (q *Queue) record(cmd vk.CommandBuffer, op gfx.Op) error {
	switch op.Kind {
	case gfx.OpBindTargets:
		color, ok := op.Color.(*image)
		if !ok || color.handle == vk.NullImage {
			return gfx.NewBackendError("BindRenderTargets", int(vk.ErrorInitializationFailed), "invalid color target")
		}
		q.color = color
		q.depth = nil
		if depth, ok := op.Depth.(*image); ok && depth.handle != vk.NullImage {
			q.depth = depth
		}
		q.scissor = gfx.Rect{Width: color.layout.Width, Height: color.layout.Height}
	case gfx.OpScissor:
		q.scissor = op.Scissor
	case gfx.OpClearColor:
		if q.color == nil {
			return gfx.NewBackendError("ClearColor", int(vk.ErrorInitializationFailed), "no render target bound")
		}
		return q.clear(cmd, vk.ClearAttachment{
			AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ColorAttachment: 0,
			ClearValue:      vk.NewClearValue(op.ClearColor[:]),
		})
	case gfx.OpClearDepth:
		if q.color == nil || q.depth == nil {
			return nil
		}
		return q.clear(cmd, vk.ClearAttachment{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			ClearValue: vk.NewClearDepthStencil(op.ClearDepth, uint32(op.ClearStencil)),
		})
	case gfx.OpCopyBuffer:
		return q.copyBuffer(cmd, op)
	}
	// viewport and fixed function state only matter to pipelines, which
	// nothing records
	return nil
}

// clear runs one attachment clear over the scissor rectangle inside a render
// pass on the bound targets.
func (q *Queue) clear(cmd vk.CommandBuffer, att vk.ClearAttachment) error {
	r := clip(q.scissor, q.color.layout)
	if r.Width == 0 || r.Height == 0 {
		return nil
	}
	fb, pass, err := q.dev.framebufferFor(q.color, q.depth)
	if err != nil {
		return err
	}
	transition(cmd, q.color, vk.ImageLayoutColorAttachmentOptimal)
	if q.depth != nil {
		transition(cmd, q.depth, vk.ImageLayoutDepthStencilAttachmentOptimal)
	}
	area := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(r.X), Y: int32(r.Y)},
		Extent: vk.Extent2D{Width: uint32(r.Width), Height: uint32(r.Height)},
	}
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea:  area,
	}, vk.SubpassContentsInline)
	vk.CmdClearAttachments(cmd, 1, []vk.ClearAttachment{att}, 1, []vk.ClearRect{{
		Rect:       area,
		LayerCount: 1,
	}})
	vk.CmdEndRenderPass(cmd)
	return nil
}

func (q *Queue) copyBuffer(cmd vk.CommandBuffer, op gfx.Op) error {
	if q.color == nil {
		return gfx.NewBackendError("CopyBufferToTarget", int(vk.ErrorInitializationFailed), "no render target bound")
	}
	src, ok := op.Src.(*block)
	if !ok || src.buffer == vk.NullBuffer {
		return gfx.NewBackendError("CopyBufferToTarget", int(vk.ErrorInitializationFailed), "source is not a host visible block")
	}
	dst := q.color.layout
	bpp := dst.Format.BytesPerPixel()
	if op.SrcStride < dst.Stride() || op.SrcStride%bpp != 0 {
		return gfx.NewBackendError("CopyBufferToTarget", int(vk.ErrorFormatNotSupported), "source stride does not fit the target")
	}
	if op.SrcOffset+uint64(op.SrcStride*dst.Height) > src.size {
		return gfx.NewBackendError("CopyBufferToTarget", int(vk.ErrorOutOfDeviceMemory), "source out of range")
	}

	transition(cmd, q.color, vk.ImageLayoutTransferDstOptimal)
	vk.CmdCopyBufferToImage(cmd, src.buffer, q.color.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset:      vk.DeviceSize(op.SrcOffset),
		BufferRowLength:   uint32(op.SrcStride / bpp),
		BufferImageHeight: uint32(dst.Height),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: uint32(dst.Width), Height: uint32(dst.Height), Depth: 1},
	}})
	return nil
}

// Present blits the color image of slot onto the acquired window image and
// queues it for presentation.
func (q *Queue) Present(sc gfx.Swapchain, slot int) error {
	s, ok := sc.(*swapchain)
	if !ok || s.destroyed || slot < 0 || slot >= len(s.images) {
		return gfx.NewBackendError("Present", int(vk.ErrorInitializationFailed), "invalid swapchain slot")
	}
	d := q.dev
	src := s.images[slot]
	dst := s.winImages[s.winIndex]

	cmd, err := q.begin()
	if err != nil {
		return err
	}
	transition(cmd, src, vk.ImageLayoutTransferSrcOptimal)
	barrier(cmd, dst, vk.ImageAspectColorBit, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	color := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	vk.CmdBlitImage(cmd, src.handle, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{{
		SrcSubresource: color,
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(src.layout.Width), Y: int32(src.layout.Height), Z: 1}},
		DstSubresource: color,
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(s.extent.Width), Y: int32(s.extent.Height), Z: 1}},
	}}, vk.FilterLinear)
	barrier(cmd, dst, vk.ImageAspectColorBit, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc)
	if err := q.submit(cmd, d.acquireSem, d.releaseSem); err != nil {
		return err
	}

	ret := vk.QueuePresent(d.vkQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.releaseSem},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{s.winIndex},
	})
	switch ret {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		s.stale = true
	default:
		return newError(ret, "vkQueuePresent")
	}
	return nil
}

func (q *Queue) WaitIdle() error {
	d := q.dev
	if ret := vk.QueueWaitIdle(d.vkQueue); isError(ret) {
		return newError(ret, "vkQueueWaitIdle")
	}
	if err := d.fences.Reset(); err != nil {
		return err
	}
	d.cmds.Reset()
	q.color, q.depth = nil, nil
	return nil
}

// transition moves img to layout, recording the barrier only when the layout
// changes.
func transition(cmd vk.CommandBuffer, img *image, layout vk.ImageLayout) {
	if img.current == layout {
		return
	}
	aspect := vk.ImageAspectColorBit
	if img.layout.Format.IsDepth() {
		aspect = vk.ImageAspectDepthBit
	}
	barrier(cmd, img.handle, aspect, img.current, layout)
	img.current = layout
}

// barrier is a full pipeline barrier; the shell records a handful per frame.
func barrier(cmd vk.CommandBuffer, img vk.Image, aspect vk.ImageAspectFlagBits, from, to vk.ImageLayout) {
	access := vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit)
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       access,
			DstAccessMask:       access,
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(aspect),
				LevelCount: 1,
				LayerCount: 1,
			},
		}})
}

func clip(r gfx.Rect, l gfx.ImageLayout) gfx.Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.Width, l.Width), min(r.Y+r.Height, l.Height)
	return gfx.Rect{X: x0, Y: y0, Width: max(x1-x0, 0), Height: max(y1-y0, 0)}
}
