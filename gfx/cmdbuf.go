package gfx

import (
	"github.com/pkg/errors"
)

// CmdMemSize is the backing size of the persistent command buffer.
const CmdMemSize = 64 << 10

// opCost is the backing memory a recorded op consumes.
const opCost = 32

// OpKind identifies a recorded command.
type OpKind uint8

const (
	OpBindTargets OpKind = iota + 1
	OpViewport
	OpScissor
	OpClearColor
	OpClearDepth
	OpRasterizerState
	OpColorState
	OpColorWriteState
	OpBlendState
	OpCopyBuffer
)

var opNames = [...]string{
	OpBindTargets:     "bind-targets",
	OpViewport:        "viewport",
	OpScissor:         "scissor",
	OpClearColor:      "clear-color",
	OpClearDepth:      "clear-depth",
	OpRasterizerState: "rasterizer-state",
	OpColorState:      "color-state",
	OpColorWriteState: "color-write-state",
	OpBlendState:      "blend-state",
	OpCopyBuffer:      "copy-buffer",
}

func (k OpKind) String() string {
	if int(k) < len(opNames) && opNames[k] != "" {
		return opNames[k]
	}
	return "unknown"
}

type Viewport struct {
	X, Y, Width, Height float32
	Near, Far           float32
}

type Rect struct {
	X, Y, Width, Height int
}

type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
)

type RasterizerState struct {
	Cull       CullMode
	DepthClamp bool
}

type ColorState struct {
	BlendEnable bool
}

type ColorMask uint8

const (
	ColorMaskR ColorMask = 1 << iota
	ColorMaskG
	ColorMaskB
	ColorMaskA
	ColorMaskRGBA = ColorMaskR | ColorMaskG | ColorMaskB | ColorMaskA
)

type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

type BlendState struct {
	Src, Dst BlendFactor
}

// Op is one recorded command. Only the fields of its Kind are meaningful.
type Op struct {
	Kind OpKind

	Color Image
	Depth Image

	Viewport Viewport
	Scissor  Rect

	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint8

	Rasterizer RasterizerState
	ColorState ColorState
	WriteMask  ColorMask
	Blend      BlendState

	Src       MemoryBlock
	SrcOffset uint64
	SrcStride int
}

// CmdBuf records ops into fixed backing memory and cuts them into immutable
// CmdLists. Clear invalidates every list cut since the previous Clear.
type CmdBuf struct {
	capacity uint64
	used     uint64
	gen      uint64
	pending  []Op
	err      error
}

// NewCmdBuf returns an empty command buffer; AddMemory must be called before
// recording.
func NewCmdBuf() *CmdBuf {
	return &CmdBuf{gen: 1}
}

// AddMemory attaches backing memory for recorded commands.
func (c *CmdBuf) AddMemory(a *Allocation) {
	c.capacity += a.Size()
}

// Used returns the backing memory consumed since the last Clear.
func (c *CmdBuf) Used() uint64 { return c.used }

// Capacity returns the attached backing memory.
func (c *CmdBuf) Capacity() uint64 { return c.capacity }

func (c *CmdBuf) record(op Op) {
	if c.err != nil {
		return
	}
	if c.used+opCost > c.capacity {
		c.err = errors.Wrapf(ErrCmdMemExhausted, "recording %s with %d of %d bytes used", op.Kind, c.used, c.capacity)
		return
	}
	c.used += opCost
	c.pending = append(c.pending, op)
}

func (c *CmdBuf) BindRenderTargets(color, depth Image) {
	c.record(Op{Kind: OpBindTargets, Color: color, Depth: depth})
}

func (c *CmdBuf) SetViewport(v Viewport) {
	c.record(Op{Kind: OpViewport, Viewport: v})
}

func (c *CmdBuf) SetScissor(r Rect) {
	c.record(Op{Kind: OpScissor, Scissor: r})
}

func (c *CmdBuf) ClearColor(rgba [4]float32) {
	c.record(Op{Kind: OpClearColor, ClearColor: rgba})
}

func (c *CmdBuf) ClearDepthStencil(depth float32, stencil uint8) {
	c.record(Op{Kind: OpClearDepth, ClearDepth: depth, ClearStencil: stencil})
}

func (c *CmdBuf) BindRasterizerState(s RasterizerState) {
	c.record(Op{Kind: OpRasterizerState, Rasterizer: s})
}

func (c *CmdBuf) BindColorState(s ColorState) {
	c.record(Op{Kind: OpColorState, ColorState: s})
}

func (c *CmdBuf) BindColorWriteState(m ColorMask) {
	c.record(Op{Kind: OpColorWriteState, WriteMask: m})
}

func (c *CmdBuf) BindBlendState(s BlendState) {
	c.record(Op{Kind: OpBlendState, Blend: s})
}

// CopyBufferToTarget copies tightly packed rows at src+offset into the bound
// color target.
func (c *CmdBuf) CopyBufferToTarget(src *Allocation, stride int) {
	c.record(Op{Kind: OpCopyBuffer, Src: src.Block(), SrcOffset: src.Offset(), SrcStride: stride})
}

// FinishList cuts the ops recorded since the previous FinishList into a list.
func (c *CmdBuf) FinishList() (*CmdList, error) {
	if c.err != nil {
		err := c.err
		c.err = nil
		c.pending = nil
		return nil, err
	}
	l := &CmdList{owner: c, gen: c.gen, ops: c.pending}
	c.pending = nil
	return l, nil
}

// Clear drops all recorded memory. Lists cut before Clear become stale.
func (c *CmdBuf) Clear() {
	c.gen++
	c.used = 0
	c.pending = nil
	c.err = nil
}

// CmdList is an immutable, replayable sequence of ops.
type CmdList struct {
	owner *CmdBuf
	gen   uint64
	ops   []Op
}

// Valid reports whether the owning buffer has not been cleared since the list
// was cut.
func (l *CmdList) Valid() bool {
	return l != nil && l.owner != nil && l.owner.gen == l.gen
}

// Ops returns the recorded ops. Callers must not modify them.
func (l *CmdList) Ops() []Op {
	return l.ops
}

// CheckList returns ErrStaleList for lists that can no longer be submitted.
// Queues call it before replaying a list.
func CheckList(l *CmdList) error {
	if !l.Valid() {
		return ErrStaleList
	}
	return nil
}
