// Package app wires configuration, logging, storage, a platform and the frame
// driver into a runnable shell.
package app

import (
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/andewx/nxshell/config"
	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/ui"
	"github.com/gogpu/gg"
	"github.com/pkg/errors"
)

// RemoteDialTimeout bounds the connection attempt to the remote log sink.
var RemoteDialTimeout = 2 * time.Second

// Bootstrap holds the process services that exist before the first frame:
// the logger, the read-only asset storage and the remote log connection.
type Bootstrap struct {
	Logger *slog.Logger
	// Storage is nil when no storage root is configured.
	Storage fs.FS

	cfg     config.Config
	remote  net.Conn
	closers []io.Closer
}

// NewBootstrap opens the log outputs and the storage named by cfg and installs
// the resulting logger in every package that logs. stderr receives the
// console copy of the log and may be nil.
func NewBootstrap(cfg config.Config, stderr io.Writer) (*Bootstrap, error) {
	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	b := &Bootstrap{cfg: cfg}

	var outs []io.Writer
	if stderr != nil {
		outs = append(outs, stderr)
	}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrap(err, "opening log file")
		}
		b.closers = append(b.closers, f)
		outs = append(outs, f)
	}

	// a missing remote sink is not fatal; it is reported once the logger exists
	var dialErr error
	if cfg.Log.Remote != "" {
		conn, err := net.DialTimeout("tcp", cfg.Log.Remote, RemoteDialTimeout)
		if err != nil {
			dialErr = err
		} else {
			b.remote = conn
			b.closers = append(b.closers, conn)
			outs = append(outs, conn)
		}
	}

	b.Logger = slog.New(slog.NewTextHandler(io.MultiWriter(outs...), &slog.HandlerOptions{Level: lvl}))
	if dialErr != nil {
		b.Logger.Warn("remote log sink unavailable", "addr", cfg.Log.Remote, "error", dialErr)
	}

	if root := cfg.Storage.Root; root != "" {
		st, err := os.Stat(root)
		if err != nil {
			b.Close()
			return nil, errors.Wrap(err, "opening storage")
		}
		if !st.IsDir() {
			b.Close()
			return nil, errors.Errorf("storage root %s is not a directory", root)
		}
		b.Storage = os.DirFS(root)
	}

	b.installLoggers(b.Logger)
	b.Logger.Info("bootstrap ready", "level", lvl, "storage", cfg.Storage.Root, "remote", b.remote != nil)
	return b, nil
}

func (b *Bootstrap) installLoggers(l *slog.Logger) {
	if l == nil {
		gfx.SetLogger(nil)
		ui.SetLogger(nil)
		frame.SetLogger(nil)
		gg.SetLogger(nil)
		return
	}
	gfx.SetLogger(l.With("pkg", "gfx"))
	ui.SetLogger(l.With("pkg", "ui"))
	frame.SetLogger(l.With("pkg", "frame"))
	gg.SetLogger(l.With("pkg", "gg"))
}

// Remote reports whether the remote log sink is connected.
func (b *Bootstrap) Remote() bool { return b.remote != nil }

// Fonts returns the font loader for the configured font files. Fonts without
// a configured file, or every font when there is no storage, come from the
// builtin set.
func (b *Bootstrap) Fonts() ui.FontLoader {
	if b.Storage == nil {
		return ui.BuiltinFonts{}
	}
	return ui.FSFonts{FS: b.Storage, Files: b.cfg.Fonts.FontFiles(), Fallback: ui.BuiltinFonts{}}
}

// Close silences the package loggers and closes the log outputs. It returns
// the first close error.
func (b *Bootstrap) Close() error {
	b.installLoggers(nil)
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	b.remote = nil
	return first
}
