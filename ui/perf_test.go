package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerfGraphAverage(t *testing.T) {
	g := NewPerfGraph(StyleFPS, "test")
	assert.Zero(t, g.Average())

	vals := []float64{0.016, 0.017, 0.033, 0.010}
	for _, v := range vals {
		g.Update(v)
	}
	assert.InDelta(t, (0.016+0.017+0.033+0.010)/4, g.Average(), 1e-12)
	assert.Equal(t, vals, g.Samples())
}

func TestPerfGraphFullHistory(t *testing.T) {
	g := NewPerfGraph(StyleMS, "test")
	var sum float64
	for i := 1; i <= GraphHistoryCount; i++ {
		g.Update(float64(i))
		sum += float64(i)
	}
	assert.InDelta(t, sum/GraphHistoryCount, g.Average(), 1e-9)
}

func TestPerfGraphEvictsOldest(t *testing.T) {
	g := NewPerfGraph(StyleMS, "test")
	n := GraphHistoryCount + 25
	for i := 1; i <= n; i++ {
		g.Update(float64(i))
	}
	samples := g.Samples()
	assert.Len(t, samples, GraphHistoryCount)
	assert.Equal(t, float64(26), samples[0], "first 25 samples evicted")
	assert.Equal(t, float64(n), samples[len(samples)-1])

	var sum float64
	for i := 26; i <= n; i++ {
		sum += float64(i)
	}
	assert.InDelta(t, sum/GraphHistoryCount, g.Average(), 1e-9)
}

func TestPerfGraphStyles(t *testing.T) {
	g := NewPerfGraph(StyleFPS, "test")
	g.NextStyle()
	assert.Equal(t, StyleMS, g.Style())
	g.NextStyle()
	assert.Equal(t, StylePercent, g.Style())
	g.NextStyle()
	assert.Equal(t, StyleFPS, g.Style())

	assert.InDelta(t, 1, g.plot(0.001), 1e-9, "fps clamps at 80")
	g.NextStyle()
	assert.InDelta(t, 0.5, g.plot(0.010), 1e-9)
}

func TestPerfGraphPercentOfBudget(t *testing.T) {
	g := NewPerfGraph(StylePercent, "test")
	assert.InDelta(t, 100, budgetPercent(FrameBudget), 1e-9)
	assert.InDelta(t, 0.5, g.plot(FrameBudget/2), 1e-9, "half the budget plots half height")
	assert.InDelta(t, 1, g.plot(FrameBudget*3), 1e-9, "overruns clamp at the top")
	assert.InDelta(t, 0, g.plot(0), 1e-9)
}
