package ui

import "github.com/gogpu/gg"

// FrameContext is what drawing code gets for one frame. It is only valid
// between Renderer.BeginFrame and Renderer.EndFrame.
type FrameContext struct {
	VG         *gg.Context
	Width      float64
	Height     float64
	PixelRatio float64
	Fonts      *FontStash
	Theme      *Theme
}
