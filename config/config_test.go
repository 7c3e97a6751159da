package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/andewx/nxshell/frame"
	"github.com/andewx/nxshell/gfx"
	"github.com/andewx/nxshell/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nxshell.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, gfx.DefaultOptions(), cfg.GfxOptions())

	mode, err := cfg.Display.OperationMode()
	require.NoError(t, err)
	assert.Equal(t, frame.ModeHandheld, mode)

	exit, err := cfg.Input.ExitButton()
	require.NoError(t, err)
	assert.Equal(t, input.ButtonPlus, exit)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[display]
headless = true
mode = "docked"
tick_limit = 120
snapshot = "out.png"

[log]
level = "debug"

[input]
exit = "minus"

[fonts]
standard = "fonts/regular.ttf"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Display.Headless)
	assert.Equal(t, uint64(120), cfg.Display.TickLimit)
	assert.Equal(t, "out.png", cfg.Display.Snapshot)
	assert.Equal(t, 60, cfg.Display.TickRate, "untouched keys keep their default")

	mode, err := cfg.Display.OperationMode()
	require.NoError(t, err)
	assert.Equal(t, frame.ModeConsole, mode)

	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	exit, err := cfg.Input.ExitButton()
	require.NoError(t, err)
	assert.Equal(t, input.ButtonMinus, exit)

	files := cfg.Fonts.FontFiles()
	assert.Equal(t, "fonts/regular.ttf", files["standard"])
	assert.Empty(t, files["symbols"])
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "[display]\nresolution = 4\n",
		"bad mode":         "[display]\nmode = \"tabletop\"\n",
		"bad theme":        "[display]\ntheme = \"neon\"\n",
		"bad tick rate":    "[display]\ntick_rate = 0\n",
		"bad level":        "[log]\nlevel = \"loud\"\n",
		"bad exit button":  "[input]\nexit = \"Home\"\n",
		"small image pool": "[pools]\nimage = 1048576\n",
		"small data pool":  "[pools]\ndata = 4096\n",
		"not toml":         "[display\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestPathFromEnvironment(t *testing.T) {
	t.Setenv(EnvPath, "/etc/nxshell/custom.toml")
	assert.Equal(t, "/etc/nxshell/custom.toml", Path())
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Display.Mode = "console"
	cfg.Log.Remote = "127.0.0.1:9000"

	data, err := Encode(cfg)
	require.NoError(t, err)

	got := Config{}
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, cfg, got)
}

func TestFramebufferBytes(t *testing.T) {
	assert.Equal(t, uint64(3*720*1280*4), FramebufferBytes(frame.ModeHandheld))
	assert.Less(t, FramebufferBytes(frame.ModeConsole), Default().Pools.Image)
}
