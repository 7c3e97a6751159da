// Package frame drives the per-tick frame cycle and rebuilds the framebuffer
// dependent resources when the display mode changes.
package frame

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode is the console operation mode.
type Mode int

const (
	ModeHandheld Mode = iota
	ModeConsole
)

func (m Mode) String() string {
	switch m {
	case ModeHandheld:
		return "handheld"
	case ModeConsole:
		return "console"
	}
	return "unknown"
}

// ParseMode accepts "handheld" and "console" (or "docked").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "handheld":
		return ModeHandheld, nil
	case "console", "docked":
		return ModeConsole, nil
	}
	return ModeHandheld, errors.Errorf("unknown operation mode %q", s)
}

// DimensionsFor returns the framebuffer width and height for m.
func DimensionsFor(m Mode) (width, height int) {
	if m == ModeConsole {
		return 1080, 1920
	}
	return 720, 1280
}

// State is the driver state.
type State int

const (
	Steady State = iota
	Reconfiguring
)

func (s State) String() string {
	if s == Reconfiguring {
		return "reconfiguring"
	}
	return "steady"
}
