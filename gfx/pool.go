package gfx

import (
	"sort"

	"github.com/pkg/errors"
)

// Pool sizes used when no configuration overrides them.
const (
	DefaultImagePoolSize = 32 << 20
	DefaultCodePoolSize  = 128 << 10
	DefaultDataPoolSize  = 1 << 20
)

// AlignUp rounds v up to the next multiple of align. An align of zero or one
// returns v unchanged.
func AlignUp(v, align uint64) uint64 {
	if align <= 1 || v%align == 0 {
		return v
	}
	return (v/align + 1) * align
}

type span struct {
	off  uint64
	size uint64
}

// MemoryPool is a coarse arena over one backend MemoryBlock. Allocations are
// offset+size handles into the block; freeing returns the region and merges
// it with free neighbours. The pool must outlive every allocation made from it.
type MemoryPool struct {
	name      string
	block     MemoryBlock
	free      []span // sorted by offset, never adjacent
	live      int
	used      uint64
	peak      uint64
	destroyed bool
}

// NewMemoryPool allocates a backing block of size bytes from dev.
func NewMemoryPool(dev Device, name string, size uint64, flags MemFlags) (*MemoryPool, error) {
	block, err := dev.NewMemoryBlock(size, flags)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s pool", name)
	}
	Logger().Debug("memory pool created", "pool", name, "size", size)
	return &MemoryPool{
		name:  name,
		block: block,
		free:  []span{{off: 0, size: block.Size()}},
	}, nil
}

func (p *MemoryPool) Name() string       { return p.name }
func (p *MemoryPool) Block() MemoryBlock { return p.block }
func (p *MemoryPool) Size() uint64       { return p.block.Size() }

// Used returns the bytes currently handed out, including alignment padding.
func (p *MemoryPool) Used() uint64 { return p.used }

// Peak returns the largest value Used has reached.
func (p *MemoryPool) Peak() uint64 { return p.peak }

// Live returns the number of allocations not yet freed.
func (p *MemoryPool) Live() int { return p.live }

// Alloc carves size bytes aligned to align out of the pool (first fit).
func (p *MemoryPool) Alloc(size, align uint64) (*Allocation, error) {
	if p.destroyed {
		return nil, errors.Wrap(ErrPoolDestroyed, p.name)
	}
	if size == 0 {
		return nil, errors.Errorf("%s pool: zero sized allocation", p.name)
	}
	for i, s := range p.free {
		start := AlignUp(s.off, align)
		pad := start - s.off
		if pad+size > s.size {
			continue
		}
		// Padding in front of an aligned start stays free.
		var rest []span
		if pad > 0 {
			rest = append(rest, span{off: s.off, size: pad})
		}
		if tail := s.size - pad - size; tail > 0 {
			rest = append(rest, span{off: start + size, size: tail})
		}
		p.free = append(p.free[:i], append(rest, p.free[i+1:]...)...)
		p.live++
		p.used += size
		if p.used > p.peak {
			p.peak = p.used
		}
		return &Allocation{pool: p, offset: start, size: size}, nil
	}
	return nil, errors.Wrapf(ErrPoolExhausted, "%s pool: %d bytes (align %d), %d of %d used",
		p.name, size, align, p.used, p.Size())
}

func (p *MemoryPool) release(off, size uint64) {
	i := sort.Search(len(p.free), func(i int) bool { return p.free[i].off > off })
	p.free = append(p.free, span{})
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = span{off: off, size: size}

	// merge with the following span, then the preceding one
	if i+1 < len(p.free) && p.free[i].off+p.free[i].size == p.free[i+1].off {
		p.free[i].size += p.free[i+1].size
		p.free = append(p.free[:i+1], p.free[i+2:]...)
	}
	if i > 0 && p.free[i-1].off+p.free[i-1].size == p.free[i].off {
		p.free[i-1].size += p.free[i].size
		p.free = append(p.free[:i], p.free[i+1:]...)
	}
	p.live--
	p.used -= size
}

// Destroy releases the backing block. It fails while allocations are live.
func (p *MemoryPool) Destroy() error {
	if p.destroyed {
		return nil
	}
	if p.live > 0 {
		return errors.Wrapf(ErrPoolBusy, "%s pool: %d live", p.name, p.live)
	}
	p.block.Destroy()
	p.destroyed = true
	p.free = nil
	Logger().Debug("memory pool destroyed", "pool", p.name, "peak", p.peak)
	return nil
}

// Allocation is an offset+size handle into a MemoryPool.
type Allocation struct {
	pool   *MemoryPool
	offset uint64
	size   uint64
	freed  bool
}

func (a *Allocation) Offset() uint64     { return a.offset }
func (a *Allocation) Size() uint64       { return a.size }
func (a *Allocation) Pool() *MemoryPool  { return a.pool }
func (a *Allocation) Block() MemoryBlock { return a.pool.block }

// Bytes returns the CPU view of the allocation for host visible pools.
func (a *Allocation) Bytes() ([]byte, error) {
	if a.freed {
		return nil, ErrDoubleFree
	}
	if a.pool.destroyed {
		return nil, errors.Wrap(ErrPoolDestroyed, a.pool.name)
	}
	mem, err := a.pool.block.Map()
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s pool", a.pool.name)
	}
	return mem[a.offset : a.offset+a.size], nil
}

// Free returns the region to its pool.
func (a *Allocation) Free() error {
	if a.freed {
		return errors.Wrapf(ErrDoubleFree, "%s pool offset %d", a.pool.name, a.offset)
	}
	if a.pool.destroyed {
		return errors.Wrap(ErrPoolDestroyed, a.pool.name)
	}
	a.freed = true
	a.pool.release(a.offset, a.size)
	return nil
}
