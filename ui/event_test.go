package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFireOrder(t *testing.T) {
	var bus EventBus[int]
	assert.False(t, bus.Fire(1), "no listeners")

	var got []string
	bus.Subscribe(func(v int) { got = append(got, "first") })
	bus.Subscribe(func(v int) { got = append(got, "second") })

	assert.True(t, bus.Fire(7))
	assert.Equal(t, []string{"first", "second"}, got)
	assert.Equal(t, 2, bus.Len())
}

func TestEventBusUnsubscribe(t *testing.T) {
	var bus EventBus[string]
	var got []string
	a := bus.Subscribe(func(v string) { got = append(got, "a:"+v) })
	b := bus.Subscribe(func(v string) { got = append(got, "b:"+v) })

	assert.True(t, bus.Unsubscribe(a))
	assert.False(t, bus.Unsubscribe(a), "tokens are single use")

	bus.Fire("x")
	assert.Equal(t, []string{"b:x"}, got)

	assert.True(t, bus.Unsubscribe(b))
	assert.False(t, bus.Fire("y"))
}

func TestEventBusUnsubscribeWhileFiring(t *testing.T) {
	var bus EventBus[int]
	var calls []string
	var second Token
	bus.Subscribe(func(int) {
		calls = append(calls, "first")
		bus.Unsubscribe(second)
	})
	second = bus.Subscribe(func(int) { calls = append(calls, "second") })

	// the running Fire still sees the listener it started with
	bus.Fire(1)
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	bus.Fire(2)
	assert.Equal(t, []string{"first"}, calls)
}
