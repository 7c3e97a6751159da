// Command nxshell runs the shell in a desktop window or, with
// display.headless set, on the software backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/andewx/nxshell/app"
	"github.com/andewx/nxshell/config"
	"github.com/andewx/nxshell/desktop"
	"github.com/andewx/nxshell/gfx"
)

func init() {
	// glfw and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nxshell: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	boot, err := app.NewBootstrap(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer boot.Close()

	// Shell.Run reports fatal graphics errors; exit through the deferred
	// teardown instead of os.Exit.
	gfx.SetFatalHandler(func(error) {})

	platform, err := newPlatform(cfg, boot)
	if err != nil {
		return err
	}
	shell, err := app.NewShell(platform, cfg, boot.Fonts(), boot.Logger)
	if err != nil {
		platform.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runErr := shell.Run(ctx)
	if err := shell.Close(); runErr == nil {
		runErr = err
	}
	return runErr
}

func newPlatform(cfg config.Config, boot *app.Bootstrap) (app.Platform, error) {
	d := cfg.Display
	if d.Headless {
		return app.NewHeadless(app.HeadlessOptions{
			Rate:      d.TickRate,
			TickLimit: d.TickLimit,
			Snapshot:  d.Snapshot,
		}), nil
	}
	mode, err := d.OperationMode()
	if err != nil {
		return nil, err
	}
	return desktop.New(desktop.Options{
		Mode:       mode,
		Scale:      d.Scale,
		Validation: d.Validation,
		Log:        boot.Logger.With("pkg", "desktop"),
	})
}
