package ui

import "github.com/gogpu/gg"

// Theme holds the colors the UI draws with.
type Theme struct {
	Background gg.RGBA
	Panel      gg.RGBA
	Text       gg.RGBA
	TextDim    gg.RGBA
	Accent     gg.RGBA
	Separator  gg.RGBA
}

// DarkTheme is the default theme.
func DarkTheme() Theme {
	return Theme{
		Background: gg.Hex("#2d2d2d"),
		Panel:      gg.Hex("#3b3b3b"),
		Text:       gg.Hex("#ffffff"),
		TextDim:    gg.Hex("#a0a0a0"),
		Accent:     gg.Hex("#00ffcc"),
		Separator:  gg.Hex("#5a5a5a"),
	}
}

// LightTheme is the alternative theme.
func LightTheme() Theme {
	return Theme{
		Background: gg.Hex("#ebebeb"),
		Panel:      gg.Hex("#ffffff"),
		Text:       gg.Hex("#2d2d2d"),
		TextDim:    gg.Hex("#6e6e6e"),
		Accent:     gg.Hex("#3250f0"),
		Separator:  gg.Hex("#c8c8c8"),
	}
}
