package app

import (
	"context"
	"image"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/gfx/softgfx"
	"github.com/andewx/nxshell/input"
	"github.com/pkg/errors"
)

// HeadlessOptions configure a Headless platform.
type HeadlessOptions struct {
	// Rate is the tick rate in Hz. Zero means 60.
	Rate int
	// TickLimit stops the loop after that many ticks. Zero runs until exit.
	TickLimit uint64
	// Snapshot is a PNG path the last presented frame is written to on Close.
	Snapshot string
	// Script is the button state of the first ticks, one entry per tick.
	Script []input.Button
	// Trace records every backend call. May be nil.
	Trace *softgfx.Trace
}

// Headless runs the shell on the software backend with scripted input and a
// fixed tick rate. Timestamps handed to the tick function advance by exactly
// one period per tick.
type Headless struct {
	opts    HeadlessOptions
	backend *softgfx.Backend
	input   *input.Scripted
	modes   chan frame.Mode

	mu       sync.Mutex
	schedule map[uint64]frame.Mode
	last     *image.RGBA
	presents int
}

func NewHeadless(opts HeadlessOptions) *Headless {
	if opts.Rate <= 0 {
		opts.Rate = 60
	}
	h := &Headless{
		opts:     opts,
		input:    input.NewScripted(opts.Script...),
		modes:    make(chan frame.Mode, 8),
		schedule: make(map[uint64]frame.Mode),
	}
	h.backend = &softgfx.Backend{Trace: opts.Trace, OnPresent: h.onPresent}
	return h
}

func (h *Headless) Opener() gfx.Opener             { return h.backend }
func (h *Headless) Window() gfx.NativeWindow       { return nil }
func (h *Headless) Input() input.Source            { return h.input }
func (h *Headless) ModeChanges() <-chan frame.Mode { return h.modes }
func (h *Headless) Backend() *softgfx.Backend      { return h.backend }
func (h *Headless) Script() *input.Scripted        { return h.input }

// ScheduleMode delivers an operation mode change before tick n (counted from
// zero).
func (h *Headless) ScheduleMode(n uint64, m frame.Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.schedule[n] = m
}

// Period is the time between two ticks.
func (h *Headless) Period() time.Duration {
	return time.Second / time.Duration(h.opts.Rate)
}

func (h *Headless) Run(ctx context.Context, tick TickFunc) error {
	period := h.Period()
	if period <= 0 {
		return errors.Errorf("invalid headless rate: %d", h.opts.Rate)
	}
	t := time.NewTicker(period)
	defer t.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.deliver(n)
			if !tick(n * uint64(period)) {
				return nil
			}
			n++
			if h.opts.TickLimit > 0 && n >= h.opts.TickLimit {
				return nil
			}
		}
	}
}

func (h *Headless) deliver(n uint64) {
	h.mu.Lock()
	m, ok := h.schedule[n]
	delete(h.schedule, n)
	h.mu.Unlock()
	if ok {
		h.modes <- m
	}
}

func (h *Headless) onPresent(_ int, layout gfx.ImageLayout, pix []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presents++
	r := image.Rect(0, 0, layout.Width, layout.Height)
	if h.last == nil || h.last.Rect != r {
		h.last = image.NewRGBA(r)
	}
	copy(h.last.Pix, pix)
}

// LastFrame returns a copy of the most recently presented frame, or nil.
func (h *Headless) LastFrame() *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil
	}
	img := image.NewRGBA(h.last.Rect)
	copy(img.Pix, h.last.Pix)
	return img
}

// Presents returns the number of presented frames.
func (h *Headless) Presents() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presents
}

// Close writes the snapshot when one is configured.
func (h *Headless) Close() error {
	if h.opts.Snapshot == "" {
		return nil
	}
	img := h.LastFrame()
	if img == nil {
		return nil
	}
	f, err := os.Create(h.opts.Snapshot)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrap(err, "encoding snapshot")
	}
	return f.Close()
}
