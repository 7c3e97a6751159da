package ui

import "fmt"

// GraphHistoryCount is the number of frame times a PerfGraph keeps.
const GraphHistoryCount = 100

// FrameBudget is the frame time of a 60 Hz display in seconds. StylePercent
// plots frame times as a percentage of it.
const FrameBudget = 1.0 / 60

// RenderStyle selects what a PerfGraph plots.
type RenderStyle int

const (
	StyleFPS RenderStyle = iota
	StyleMS
	StylePercent
	numStyles
)

func (s RenderStyle) String() string {
	switch s {
	case StyleFPS:
		return "fps"
	case StyleMS:
		return "ms"
	case StylePercent:
		return "percent"
	}
	return "unknown"
}

// Graph box size in unscaled pixels.
const (
	graphWidth  = 200
	graphHeight = 35
)

// PerfGraph is a ring buffer of recent frame times that draws itself.
type PerfGraph struct {
	style  RenderStyle
	name   string
	values [GraphHistoryCount]float64
	head   int
	count  int
}

func NewPerfGraph(style RenderStyle, name string) *PerfGraph {
	return &PerfGraph{style: style, name: name}
}

// Update records one frame time in seconds, evicting the oldest sample once
// the history is full.
func (g *PerfGraph) Update(frameTime float64) {
	g.head = (g.head + 1) % GraphHistoryCount
	g.values[g.head] = frameTime
	if g.count < GraphHistoryCount {
		g.count++
	}
}

// Average returns the mean of the recorded samples, or zero before the first
// Update.
func (g *PerfGraph) Average() float64 {
	if g.count == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.Samples() {
		sum += v
	}
	return sum / float64(g.count)
}

// Samples returns the recorded frame times, oldest first.
func (g *PerfGraph) Samples() []float64 {
	out := make([]float64, g.count)
	oldest := g.head - g.count + 1
	for i := range out {
		out[i] = g.values[(oldest+i+GraphHistoryCount)%GraphHistoryCount]
	}
	return out
}

func (g *PerfGraph) Style() RenderStyle { return g.style }

// NextStyle cycles fps → ms → percent.
func (g *PerfGraph) NextStyle() {
	g.style = (g.style + 1) % numStyles
}

// plot maps a sample to its height fraction in [0, 1].
func (g *PerfGraph) plot(v float64) float64 {
	switch g.style {
	case StyleFPS:
		return min(1/(0.00001+v), 80) / 80
	case StyleMS:
		return min(v*1000, 20) / 20
	default:
		return min(budgetPercent(v), 100) / 100
	}
}

// Render draws the graph with its top left corner at x, y.
func (g *PerfGraph) Render(fc *FrameContext, x, y float64) error {
	dc := fc.VG
	s := fc.PixelRatio
	w, h := graphWidth*s, graphHeight*s

	dc.DrawRectangle(x, y, w, h)
	dc.SetRGBA(0, 0, 0, 0.5)
	if err := dc.Fill(); err != nil {
		return err
	}

	samples := g.Samples()
	if len(samples) > 0 {
		step := w / float64(GraphHistoryCount-1)
		dc.MoveTo(x, y+h)
		for i, v := range samples {
			dc.LineTo(x+float64(i)*step, y+h-g.plot(v)*h)
		}
		dc.LineTo(x+float64(len(samples)-1)*step, y+h)
		dc.ClosePath()
		dc.SetRGBA(1, 0.75, 0, 0.5)
		if err := dc.Fill(); err != nil {
			return err
		}
	}

	if fc.Fonts == nil {
		return nil
	}
	small, err := fc.Fonts.Face(12 * s)
	if err != nil {
		return err
	}
	large, err := fc.Fonts.Face(15 * s)
	if err != nil {
		return err
	}

	dc.SetFont(small)
	dc.SetRGBA(0.94, 0.94, 0.94, 0.75)
	dc.DrawStringAnchored(g.name, x+3*s, y+3*s, 0, 1)

	avg := g.Average()
	dc.SetFont(large)
	dc.SetRGBA(0.94, 0.94, 0.94, 1)
	switch g.style {
	case StyleFPS:
		dc.DrawStringAnchored(fmt.Sprintf("%.2f FPS", 1/max(avg, 0.00001)), x+w-3*s, y+3*s, 1, 1)
		dc.SetFont(small)
		dc.SetRGBA(0.94, 0.94, 0.94, 0.63)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f ms", avg*1000), x+w-3*s, y+h-3*s, 1, 0)
	case StyleMS:
		dc.DrawStringAnchored(fmt.Sprintf("%.2f ms", avg*1000), x+w-3*s, y+3*s, 1, 1)
	default:
		dc.DrawStringAnchored(fmt.Sprintf("%.1f %%", budgetPercent(avg)), x+w-3*s, y+3*s, 1, 1)
	}
	return nil
}

// budgetPercent converts a frame time in seconds to a percentage of
// FrameBudget.
func budgetPercent(frameTime float64) float64 {
	return frameTime / FrameBudget * 100
}
