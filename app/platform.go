package app

import (
	"context"

	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/input"
)

// TickFunc runs one frame at the monotonic time ns and reports whether the
// loop should continue.
type TickFunc func(ns uint64) bool

// Platform is the host a shell runs on: it supplies the graphics backend, the
// window, the input source and operation mode notifications, and owns the
// main loop.
type Platform interface {
	Opener() gfx.Opener
	Window() gfx.NativeWindow
	Input() input.Source
	// ModeChanges delivers operation mode changes. The shell drains it
	// between ticks.
	ModeChanges() <-chan frame.Mode
	// Run calls tick until it returns false, the platform is asked to quit
	// or ctx is done.
	Run(ctx context.Context, tick TickFunc) error
	// Close releases the platform after the graphics device is destroyed.
	Close() error
}
