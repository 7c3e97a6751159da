// Package config loads the nxshell TOML configuration.
package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"

	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/input"
	"github.com/andewx/nxshell/ui"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "NXSHELL_CONFIG"

// DefaultPath is looked up in the working directory.
const DefaultPath = "nxshell.toml"

type Config struct {
	Display Display `toml:"display"`
	Pools   Pools   `toml:"pools"`
	Log     Log     `toml:"log"`
	Storage Storage `toml:"storage"`
	Fonts   Fonts   `toml:"fonts"`
	Input   Input   `toml:"input"`
}

type Display struct {
	// Headless runs on the software backend without a window.
	Headless bool   `toml:"headless"`
	Mode     string `toml:"mode"`
	Theme    string `toml:"theme"`
	// TickRate and TickLimit pace headless runs. A zero limit runs until exit.
	TickRate   int        `toml:"tick_rate"`
	TickLimit  uint64     `toml:"tick_limit"`
	Snapshot   string     `toml:"snapshot"`
	ClearColor [4]float32 `toml:"clear_color"`
	// Scale divides the framebuffer size to get the desktop window size.
	Scale int `toml:"scale"`
	// Validation enables the Vulkan validation layer and debug report.
	Validation bool `toml:"validation"`
}

// Pools are sizes in bytes.
type Pools struct {
	Image  uint64 `toml:"image"`
	Code   uint64 `toml:"code"`
	Data   uint64 `toml:"data"`
	CmdMem uint64 `toml:"cmd_mem"`
}

type Log struct {
	Level string `toml:"level"`
	// File appends log records to a file.
	File string `toml:"file"`
	// Remote is a host:port that receives a copy of every record over TCP.
	Remote string `toml:"remote"`
}

type Storage struct {
	// Root is the read-only asset directory (romfs).
	Root string `toml:"root"`
}

// Fonts are paths below Storage.Root. Empty entries use the builtin fonts.
type Fonts struct {
	Standard  string `toml:"standard"`
	Localized string `toml:"localized"`
	Symbols   string `toml:"symbols"`
}

type Input struct {
	Exit string `toml:"exit"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	opts := gfx.DefaultOptions()
	return Config{
		Display: Display{
			Mode:       frame.ModeHandheld.String(),
			Theme:      "dark",
			TickRate:   60,
			ClearColor: opts.ClearColor,
			Scale:      2,
		},
		Pools: Pools{
			Image:  opts.ImagePoolSize,
			Code:   opts.CodePoolSize,
			Data:   opts.DataPoolSize,
			CmdMem: opts.CmdMemSize,
		},
		Log:   Log{Level: "info"},
		Input: Input{Exit: input.ButtonPlus.String()},
	}
}

// Path returns the config file to load: $NXSHELL_CONFIG when set, otherwise
// DefaultPath when it exists, otherwise "".
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, cfg.Validate()
}

// Decode parses TOML data into cfg. Keys that do not exist are errors.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.New(strict.String())
		}
		return err
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate checks every field that has a restricted set of values.
func (c Config) Validate() error {
	if _, err := c.Display.OperationMode(); err != nil {
		return err
	}
	if _, err := c.Display.UITheme(); err != nil {
		return err
	}
	if c.Display.TickRate <= 0 {
		return errors.Errorf("display.tick_rate must be positive, got %d", c.Display.TickRate)
	}
	if c.Display.Scale <= 0 {
		return errors.Errorf("display.scale must be positive, got %d", c.Display.Scale)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if _, err := c.Input.ExitButton(); err != nil {
		return err
	}
	if c.Pools.CmdMem == 0 || c.Pools.CmdMem+ui.FrameCmdSize*2 > c.Pools.Data {
		return errors.Errorf("pools.data (%d) must hold cmd_mem (%d) and two frame command buffers",
			c.Pools.Data, c.Pools.CmdMem)
	}
	if c.Pools.Code == 0 {
		return errors.New("pools.code must be positive")
	}
	for _, m := range []frame.Mode{frame.ModeHandheld, frame.ModeConsole} {
		if need := FramebufferBytes(m); c.Pools.Image < need {
			return errors.Errorf("pools.image (%d) cannot hold the %s framebuffers (%d)", c.Pools.Image, m, need)
		}
	}
	return nil
}

// FramebufferBytes estimates the image pool space one framebuffer set of mode
// takes.
func FramebufferBytes(m frame.Mode) uint64 {
	w, h := frame.DimensionsFor(m)
	per := gfx.AlignUp(uint64(w*h*4), 256)
	return per * (gfx.NumFramebuffers + 1)
}

func (d Display) OperationMode() (frame.Mode, error) {
	return frame.ParseMode(d.Mode)
}

func (d Display) UITheme() (ui.Theme, error) {
	switch strings.ToLower(d.Theme) {
	case "", "dark":
		return ui.DarkTheme(), nil
	case "light":
		return ui.LightTheme(), nil
	}
	return ui.Theme{}, errors.Errorf("unknown theme %q", d.Theme)
}

func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, errors.Wrapf(err, "log.level")
	}
	return lvl, nil
}

func (i Input) ExitButton() (input.Button, error) {
	return input.ParseButton(i.Exit)
}

// GfxOptions maps the pool and clear settings onto resource manager options.
func (c Config) GfxOptions() gfx.Options {
	return gfx.Options{
		ImagePoolSize: c.Pools.Image,
		CodePoolSize:  c.Pools.Code,
		DataPoolSize:  c.Pools.Data,
		CmdMemSize:    c.Pools.CmdMem,
		ClearColor:    c.Display.ClearColor,
	}
}

// FontFiles returns the configured font paths by font name.
func (f Fonts) FontFiles() map[string]string {
	return map[string]string{
		ui.FontStandard:  f.Standard,
		ui.FontLocalized: f.Localized,
		ui.FontSymbols:   f.Symbols,
	}
}
