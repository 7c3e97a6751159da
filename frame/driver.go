package frame

import (
	"sync"
	"sync/atomic"

	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/input"
	"github.com/andewx/nxshell/ui"
	"github.com/pkg/errors"
)

// Options configure a Driver.
type Options struct {
	Input input.Source
	Fonts ui.FontLoader
	Theme ui.Theme
	// Exit ends the loop when it is newly pressed.
	Exit input.Button
}

// Driver owns the frame loop: it polls input, updates the UI, renders and
// presents one frame per tick, and rebuilds the framebuffers, the renderer and
// the UI state when the operation mode changes. OnTick and
// OnOperationModeChange exclude each other and may be called from different
// goroutines.
type Driver struct {
	mu    sync.Mutex
	state atomic.Int32

	rm   *gfx.ResourceManager
	opts Options

	mode     Mode
	renderer *ui.Renderer
	ui       *ui.State

	started bool
	closed  bool
	// failed is set once an error reached the fatal handler. The driver
	// renders nothing after that.
	failed bool

	lastNs   uint64
	haveLast bool
	ticks    uint64

	fatal func(error)

	// Reconfigured fires with the new mode after every completed mode change,
	// outside the driver lock.
	Reconfigured ui.EventBus[Mode]
}

// NewDriver returns a driver over rm. Start creates the first generation of
// framebuffer resources.
func NewDriver(rm *gfx.ResourceManager, opts Options) *Driver {
	return &Driver{
		rm:    rm,
		opts:  opts,
		fatal: func(err error) { gfx.Fatal(err) },
	}
}

// SetFatalHandler replaces the handler unrecoverable errors are passed to.
// The default hands them to gfx.Fatal, which exits the process.
func (d *Driver) SetFatalHandler(fn func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fatal = fn
}

// fail hands err to the fatal handler and stops the driver.
func (d *Driver) fail(err error) {
	d.failed = true
	d.fatal(err)
}

// Failed reports whether an unrecoverable error stopped the driver.
func (d *Driver) Failed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}

// State returns Reconfiguring while a mode change is in progress.
func (d *Driver) State() State { return State(d.state.Load()) }

func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Dimensions returns the current framebuffer size.
func (d *Driver) Dimensions() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rm.Dimensions()
}

// UI returns the current UI state. It is replaced on every mode change.
func (d *Driver) UI() *ui.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ui
}

// Ticks returns the number of frames presented.
func (d *Driver) Ticks() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

// Start creates the framebuffer resources, the renderer and the UI state for
// mode.
func (d *Driver) Start(mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.Wrap(gfx.ErrResourceOrder, "driver already started")
	}
	w, h := DimensionsFor(mode)
	if err := d.rm.CreateFramebufferResources(w, h); err != nil {
		return err
	}
	if err := d.createUI(w, h); err != nil {
		return err
	}
	d.mode = mode
	d.started = true
	Logger().Info("frame driver started", "mode", mode, "width", w, "height", h)
	return nil
}

// OnTick runs one frame. ns is a monotonic timestamp in nanoseconds. It
// returns false when the exit button was pressed, in which case nothing is
// rendered, and once an unrecoverable error has been reported. UI events
// raised during the tick fire after the driver lock is released.
func (d *Driver) OnTick(ns uint64) bool {
	ok, st := d.tick(ns)
	if st != nil {
		st.FlushEvents()
	}
	return ok
}

func (d *Driver) tick(ns uint64) (bool, *ui.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.closed || d.failed {
		Logger().Warn("tick outside the driver lifetime", "started", d.started, "closed", d.closed, "failed", d.failed)
		return false, nil
	}

	st := d.ui
	snap := d.opts.Input.Poll()
	st.Update(snap)
	if snap.Pressed(d.opts.Exit) {
		Logger().Info("exit requested", "button", d.opts.Exit)
		return false, st
	}

	var dt float64
	if d.haveLast && ns > d.lastNs {
		dt = float64(ns-d.lastNs) / 1e9
	}
	d.lastNs, d.haveLast = ns, true

	if err := d.render(dt); err != nil {
		d.fail(errors.Wrap(err, "rendering frame"))
		return false, st
	}
	d.ticks++
	return true, st
}

func (d *Driver) render(dt float64) error {
	d.ui.Perf().Update(dt)

	dc, err := d.renderer.BeginFrame()
	if err != nil {
		return err
	}
	w, h := d.renderer.Dimensions()
	fc := &ui.FrameContext{
		VG:         dc,
		Width:      float64(w),
		Height:     float64(h),
		PixelRatio: float64(w) / ui.BaseWidth,
		Fonts:      d.ui.Fonts(),
		Theme:      d.ui.Theme(),
	}
	drawErr := d.ui.Draw(fc)
	if drawErr == nil {
		drawErr = d.ui.DrawPerf(fc)
	}
	list, err := d.renderer.EndFrame()
	if drawErr != nil {
		return drawErr
	}
	if err != nil {
		return err
	}
	return d.rm.AcquireAndPresent(list)
}

// OnOperationModeChange tears down and rebuilds everything that depends on
// the framebuffer size for the dimensions of mode. No tick runs while it
// does.
func (d *Driver) OnOperationModeChange(mode Mode) {
	if d.reconfigure(mode) {
		d.Reconfigured.Fire(mode)
	}
}

func (d *Driver) reconfigure(mode Mode) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.closed || d.failed {
		Logger().Warn("mode change outside the driver lifetime", "mode", mode, "failed", d.failed)
		return false
	}

	d.state.Store(int32(Reconfiguring))
	defer d.state.Store(int32(Steady))

	w, h := DimensionsFor(mode)
	Logger().Info("operation mode changed", "from", d.mode, "to", mode, "width", w, "height", h)
	if err := d.rebuild(w, h); err != nil {
		d.fail(errors.Wrapf(err, "switching to %s mode", mode))
		return false
	}
	d.mode = mode
	return true
}

// rebuild must see the old generation fully released before the new one is
// created.
func (d *Driver) rebuild(w, h int) error {
	if err := d.rm.DestroyFramebufferResources(); err != nil {
		return err
	}
	if err := d.destroyUI(); err != nil {
		return err
	}
	if err := d.rm.CreateFramebufferResources(w, h); err != nil {
		return err
	}
	return d.createUI(w, h)
}

func (d *Driver) createUI(w, h int) error {
	r, err := ui.NewRenderer(d.rm.Device(), d.rm.DataPool(), w, h)
	if err != nil {
		return errors.Wrap(err, "creating renderer")
	}
	s, err := ui.NewState(r, ui.StateOptions{Fonts: d.opts.Fonts, Theme: d.opts.Theme, Exit: d.opts.Exit})
	if err != nil {
		_ = r.Close()
		return errors.Wrap(err, "creating ui state")
	}
	d.renderer, d.ui = r, s
	return nil
}

func (d *Driver) destroyUI() error {
	var first error
	if d.ui != nil {
		first = d.ui.Close()
		d.ui = nil
	}
	if d.renderer != nil {
		if err := d.renderer.Close(); err != nil && first == nil {
			first = err
		}
		d.renderer = nil
	}
	return first
}

// Close destroys the UI state, the renderer and the framebuffer resources.
// The resource manager itself stays alive. Calling Close again does nothing.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.started {
		return nil
	}
	d.closed = true
	if err := d.rm.DestroyFramebufferResources(); err != nil {
		return err
	}
	if err := d.destroyUI(); err != nil {
		return err
	}
	Logger().Info("frame driver closed", "ticks", d.ticks)
	return nil
}
