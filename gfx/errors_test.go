package gfx_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatal(t *testing.T) {
	var buf bytes.Buffer
	gfx.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer gfx.SetLogger(nil)

	var got error
	prev := gfx.SetFatalHandler(func(err error) { got = err })
	defer gfx.SetFatalHandler(prev)

	var order []string
	gfx.Fatal(nil, func() { order = append(order, "finalizer") })
	assert.Nil(t, got)
	assert.Empty(t, order)

	cause := gfx.NewBackendError("vkQueueSubmit", -4, "device lost")
	gfx.Fatal(errors.Wrap(cause, "presenting"), func() { order = append(order, "finalizer") })

	require.Error(t, got)
	assert.Equal(t, []string{"finalizer"}, order)
	assert.Equal(t, cause, errors.Cause(got))

	out := buf.String()
	assert.Contains(t, out, "fatal graphics error")
	assert.Contains(t, out, "context=vkQueueSubmit")
	assert.Contains(t, out, "code=-4")
	assert.Contains(t, out, `message="device lost"`)
}

func TestBackendErrorString(t *testing.T) {
	err := gfx.NewBackendError("vkCreateSwapchainKHR", -1000001004, "out of date")
	assert.Equal(t, "vkCreateSwapchainKHR: out of date (-1000001004)", err.Error())
}
