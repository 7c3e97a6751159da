package softgfx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
)

// Queue executes command lists synchronously on Submit.
type Queue struct {
	dev *Device

	color   *Image
	depth   *Image
	scissor gfx.Rect

	submitted int
}

// Submitted returns the number of lists executed so far.
func (q *Queue) Submitted() int { return q.submitted }

func (q *Queue) AcquireImage(sc gfx.Swapchain) (int, error) {
	s, ok := sc.(*Swapchain)
	if !ok {
		return 0, errors.Errorf("softgfx: foreign swapchain %T", sc)
	}
	if err := q.dev.check(KindAcquire, fmt.Sprint(s.next)); err != nil {
		return 0, err
	}
	if s.destroyed {
		return 0, gfx.NewBackendError("AcquireImage", -6, "swapchain destroyed")
	}
	slot := s.next
	s.acquired = slot
	s.next = (s.next + 1) % len(s.images)
	return slot, nil
}

// Submit records the list and replays its ops. The detail recorded for the
// call is the kind of the list's first op.
func (q *Queue) Submit(list *gfx.CmdList) error {
	detail := "empty"
	if list != nil && len(list.Ops()) > 0 {
		detail = list.Ops()[0].Kind.String()
	}
	if err := q.dev.check(KindSubmit, detail); err != nil {
		return err
	}
	if err := gfx.CheckList(list); err != nil {
		return err
	}
	for _, op := range list.Ops() {
		if err := q.exec(op); err != nil {
			return errors.Wrapf(err, "executing %s", op.Kind)
		}
	}
	q.submitted++
	return nil
}

func (q *Queue) exec(op gfx.Op) error {
	switch op.Kind {
	case gfx.OpBindTargets:
		color, ok := op.Color.(*Image)
		if !ok || color.destroyed {
			return gfx.NewBackendError("BindRenderTargets", -7, "invalid color target")
		}
		q.color = color
		q.depth = nil
		if d, ok := op.Depth.(*Image); ok && !d.destroyed {
			q.depth = d
		}
		q.scissor = gfx.Rect{Width: color.layout.Width, Height: color.layout.Height}
	case gfx.OpScissor:
		q.scissor = op.Scissor
	case gfx.OpClearColor:
		if q.color == nil {
			return gfx.NewBackendError("ClearColor", -8, "no render target bound")
		}
		px := [4]byte{clamp8(op.ClearColor[0]), clamp8(op.ClearColor[1]), clamp8(op.ClearColor[2]), clamp8(op.ClearColor[3])}
		q.fill(q.color, px[:])
	case gfx.OpClearDepth:
		if q.depth == nil {
			return nil
		}
		var px [4]byte
		binary.LittleEndian.PutUint32(px[:], math.Float32bits(op.ClearDepth))
		q.fill(q.depth, px[:])
	case gfx.OpCopyBuffer:
		return q.copyBuffer(op)
	}
	// fixed function state has no effect on the CPU path
	return nil
}

// fill writes px into every texel of img inside the scissor rectangle.
func (q *Queue) fill(img *Image, px []byte) {
	r := clip(q.scissor, img.layout)
	stride := img.layout.Stride()
	bpp := len(px)
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := img.pix[y*stride+r.X*bpp : y*stride+(r.X+r.Width)*bpp]
		for x := 0; x < len(row); x += bpp {
			copy(row[x:], px)
		}
	}
}

func (q *Queue) copyBuffer(op gfx.Op) error {
	if q.color == nil {
		return gfx.NewBackendError("CopyBufferToTarget", -8, "no render target bound")
	}
	src, ok := op.Src.(*block)
	if !ok || src.destroyed {
		return gfx.NewBackendError("CopyBufferToTarget", -9, "invalid source block")
	}
	dst := q.color
	dstStride := dst.layout.Stride()
	n := min(op.SrcStride, dstStride)
	for y := 0; y < dst.layout.Height; y++ {
		start := op.SrcOffset + uint64(y*op.SrcStride)
		if start+uint64(n) > uint64(len(src.data)) {
			return gfx.NewBackendError("CopyBufferToTarget", -10, "source out of range")
		}
		copy(dst.pix[y*dstStride:y*dstStride+n], src.data[start:start+uint64(n)])
	}
	return nil
}

func clip(r gfx.Rect, l gfx.ImageLayout) gfx.Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.Width, l.Width), min(r.Y+r.Height, l.Height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return gfx.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (q *Queue) WaitIdle() error {
	return q.dev.check(KindWaitIdle, "")
}

func (q *Queue) Present(sc gfx.Swapchain, slot int) error {
	s, ok := sc.(*Swapchain)
	if !ok {
		return errors.Errorf("softgfx: foreign swapchain %T", sc)
	}
	if err := q.dev.check(KindPresent, fmt.Sprint(slot)); err != nil {
		return err
	}
	if s.destroyed || slot < 0 || slot >= len(s.images) {
		return gfx.NewBackendError("Present", -11, fmt.Sprintf("invalid slot %d", slot))
	}
	if fn := q.dev.backend.OnPresent; fn != nil {
		img := s.images[slot]
		fn(slot, img.layout, img.pix)
	}
	return nil
}
