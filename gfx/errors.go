package gfx

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrResourceOrder   = errors.New("gfx: resource operation out of order")
	ErrPoolExhausted   = errors.New("gfx: memory pool exhausted")
	ErrPoolDestroyed   = errors.New("gfx: memory pool destroyed")
	ErrPoolBusy        = errors.New("gfx: memory pool has live allocations")
	ErrDoubleFree      = errors.New("gfx: allocation already freed")
	ErrCmdMemExhausted = errors.New("gfx: command buffer memory exhausted")
	ErrStaleList       = errors.New("gfx: command list used after its buffer was cleared")
)

// BackendError is an unrecoverable failure reported by the graphics backend.
type BackendError struct {
	Context string
	Code    int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Context, e.Message, e.Code)
}

// NewBackendError builds a BackendError; backends call it with their native
// result code.
func NewBackendError(context string, code int, msg string) error {
	return &BackendError{Context: context, Code: code, Message: msg}
}

// FatalFunc terminates the process after an unrecoverable error.
type FatalFunc func(err error)

var (
	fatalMu sync.Mutex
	fatalFn FatalFunc = exitFatal
)

// SetFatalHandler replaces the process fatal path and returns the previous one.
func SetFatalHandler(fn FatalFunc) FatalFunc {
	fatalMu.Lock()
	defer fatalMu.Unlock()
	prev := fatalFn
	if fn == nil {
		fn = exitFatal
	}
	fatalFn = fn
	return prev
}

// Fatal logs err with its backend context, runs the finalizers and hands off
// to the fatal handler. A nil err is ignored.
func Fatal(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	attrs := []any{slog.String("error", err.Error())}
	var be *BackendError
	if errors.As(err, &be) {
		attrs = append(attrs,
			slog.String("context", be.Context),
			slog.Int("code", be.Code),
			slog.String("message", be.Message))
	}
	Logger().Error("fatal graphics error", attrs...)

	fatalMu.Lock()
	fn := fatalFn
	fatalMu.Unlock()
	fn(err)
}

func exitFatal(err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %+v\n", err)
	os.Exit(1)
}
