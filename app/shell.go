package app

import (
	"context"
	"log/slog"

	"github.com/andewx/nxshell/config"
	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/ui"
	"github.com/pkg/errors"
)

// Shell owns the resource manager and the frame driver for one platform.
type Shell struct {
	platform Platform
	rm       *gfx.ResourceManager
	driver   *frame.Driver
	log      *slog.Logger

	err    error
	closed bool
}

// NewShell opens the graphics device of p, starts the frame driver in the
// configured operation mode and takes ownership of p.
func NewShell(p Platform, cfg config.Config, fonts ui.FontLoader, log *slog.Logger) (*Shell, error) {
	mode, err := cfg.Display.OperationMode()
	if err != nil {
		return nil, err
	}
	theme, err := cfg.Display.UITheme()
	if err != nil {
		return nil, err
	}
	exit, err := cfg.Input.ExitButton()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rm, err := gfx.NewResourceManager(p.Opener(), p.Window(), cfg.GfxOptions())
	if err != nil {
		return nil, errors.Wrap(err, "initializing graphics")
	}
	s := &Shell{platform: p, rm: rm, log: log}
	s.driver = frame.NewDriver(rm, frame.Options{Input: p.Input(), Fonts: fonts, Theme: theme, Exit: exit})
	s.driver.SetFatalHandler(func(err error) {
		s.err = err
		gfx.Fatal(err)
	})
	s.driver.Reconfigured.Subscribe(func(m frame.Mode) {
		w, h := frame.DimensionsFor(m)
		s.log.Info("reconfigured", "mode", m, "width", w, "height", h)
	})

	if err := s.driver.Start(mode); err != nil {
		_ = s.driver.Close()
		_ = rm.Destroy()
		return nil, errors.Wrap(err, "starting frame driver")
	}
	return s, nil
}

func (s *Shell) Driver() *frame.Driver           { return s.driver }
func (s *Shell) Resources() *gfx.ResourceManager { return s.rm }

// Run drives the platform loop until exit. Pending mode changes are applied
// before each tick. It returns the unrecoverable error that ended the loop,
// if any.
func (s *Shell) Run(ctx context.Context) error {
	s.log.Info("shell running", "mode", s.driver.Mode())
	err := s.platform.Run(ctx, func(ns uint64) bool {
		s.drainModeChanges()
		return s.driver.OnTick(ns)
	})
	if s.err != nil {
		return s.err
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Shell) drainModeChanges() {
	ch := s.platform.ModeChanges()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}
			s.driver.OnOperationModeChange(m)
		default:
			return
		}
	}
}

// Close stops the driver, destroys the graphics device and closes the
// platform, in that order.
func (s *Shell) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	keep(s.driver.Close())
	keep(s.rm.Destroy())
	keep(s.platform.Close())
	s.log.Info("shell closed", "ticks", s.driver.Ticks())
	return first
}
