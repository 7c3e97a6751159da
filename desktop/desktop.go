// Package desktop runs the shell in a glfw window on the Vulkan backend. The
// keyboard stands in for the controller and F1/F2 switch between handheld and
// console mode.
package desktop

import (
	"context"
	"log/slog"
	"time"

	"github.com/andewx/nxshell/app"
	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/gfx/vkgfx"
	"github.com/andewx/nxshell/input"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Options configure a Desktop platform.
type Options struct {
	Title string
	// Mode sizes the window at startup.
	Mode frame.Mode
	// Scale divides the framebuffer size to get the window size.
	Scale int
	// Validation enables the Vulkan validation layer.
	Validation bool
	// Keymap overrides DefaultKeymap.
	Keymap map[glfw.Key]input.Button
	Log    *slog.Logger
}

// Desktop is a glfw window with a Vulkan surface. It must be created and run
// on the main thread.
type Desktop struct {
	opts     Options
	window   *glfw.Window
	keyboard *Keyboard
	modes    chan frame.Mode
	log      *slog.Logger
	closed   bool
}

var (
	_ app.Platform          = (*Desktop)(nil)
	_ vkgfx.SurfaceProvider = (*Desktop)(nil)
)

func New(opts Options) (*Desktop, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Title == "" {
		opts.Title = "nxshell"
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("vulkan is not supported on this host")
	}

	w, h := frame.DimensionsFor(opts.Mode)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(w/opts.Scale, h/opts.Scale, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "creating window")
	}

	d := &Desktop{
		opts:     opts,
		window:   window,
		keyboard: NewKeyboard(opts.Keymap),
		modes:    make(chan frame.Mode, 8),
		log:      log,
	}
	window.SetKeyCallback(d.onKey)
	window.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if !focused {
			d.keyboard.Release()
		}
	})
	return d, nil
}

func (d *Desktop) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Press {
		if m, ok := ModeKeys[key]; ok {
			d.notifyMode(m)
			return
		}
	}
	d.keyboard.Key(key, action)
}

// notifyMode queues a mode change, dropping it when the shell is behind.
func (d *Desktop) notifyMode(m frame.Mode) {
	select {
	case d.modes <- m:
		w, h := frame.DimensionsFor(m)
		d.window.SetSize(w/d.opts.Scale, h/d.opts.Scale)
	default:
		d.log.Warn("mode change dropped", "mode", m)
	}
}

func (d *Desktop) Opener() gfx.Opener {
	return &vkgfx.Backend{
		AppName:    d.opts.Title,
		Surface:    d,
		ProcAddr:   glfw.GetVulkanGetInstanceProcAddress(),
		Validation: d.opts.Validation,
	}
}

func (d *Desktop) Window() gfx.NativeWindow { return d }

func (d *Desktop) Input() input.Source { return d.keyboard }

func (d *Desktop) ModeChanges() <-chan frame.Mode { return d.modes }

func (d *Desktop) RequiredInstanceExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

func (d *Desktop) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "creating window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *Desktop) FramebufferSize() (int, int) {
	return d.window.GetFramebufferSize()
}

// Run polls window events and ticks until the window is closed. Ticks pause
// while the window is minimized.
func (d *Desktop) Run(ctx context.Context, tick app.TickFunc) error {
	start := time.Now()
	for !d.window.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		glfw.PollEvents()
		if w, h := d.window.GetFramebufferSize(); w == 0 || h == 0 {
			glfw.WaitEventsTimeout(0.1)
			continue
		}
		if !tick(uint64(time.Since(start).Nanoseconds())) {
			return nil
		}
	}
	d.log.Info("window closed")
	return nil
}

func (d *Desktop) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.window.Destroy()
	glfw.Terminate()
	return nil
}
