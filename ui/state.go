package ui

import (
	"fmt"

	"github.com/andewx/nxshell/input"
	"github.com/gogpu/gg"
	"github.com/pkg/errors"
)

// Screen is one page of the shell UI.
type Screen int

const (
	ScreenMain Screen = iota
	ScreenAbout
)

func (s Screen) String() string {
	switch s {
	case ScreenMain:
		return "main"
	case ScreenAbout:
		return "about"
	}
	return "unknown"
}

// BaseWidth is the framebuffer width at which the UI draws unscaled.
const BaseWidth = 720

// Layout constants in unscaled pixels.
const (
	headerHeight = 88
	footerHeight = 73
	sideMargin   = 30
	titleSize    = 28
	bodySize     = 22
	hintSize     = 20
)

// ExitHint is the hint shown for the exit button.
const ExitHint = "Exit"

// State is the UI of the shell: two screens, their actions and the frame
// timing graph. It is bound to one renderer and rebuilt with it.
type State struct {
	renderer *Renderer
	fonts    *FontStash
	theme    Theme
	actions  ActionTable
	perf     *PerfGraph
	screen   Screen
	showPerf bool
	pending  []Screen

	// ScreenChanged fires with the new screen for every screen switch, on
	// the next FlushEvents. The frame driver flushes after each tick with its
	// lock released, so listeners may call back into the driver.
	ScreenChanged EventBus[Screen]
}

// StateOptions configure a new State.
type StateOptions struct {
	Fonts FontLoader
	Theme Theme
	// Exit is listed in the hint bar; the frame driver acts on it.
	Exit input.Button
}

// NewState loads the fonts and binds the actions of the main screen.
func NewState(r *Renderer, opts StateOptions) (*State, error) {
	if opts.Fonts == nil {
		opts.Fonts = BuiltinFonts{}
	}
	fonts, err := NewFontStash(opts.Fonts)
	if err != nil {
		return nil, errors.Wrap(err, "creating font stash")
	}
	s := &State{
		renderer: r,
		fonts:    fonts,
		theme:    opts.Theme,
		perf:     NewPerfGraph(StyleFPS, "Frame Timing"),
		showPerf: true,
	}
	s.actions.Add(input.ButtonA, "Graph style", func() bool {
		s.perf.NextStyle()
		return true
	})
	s.actions.Add(input.ButtonX, "About", func() bool {
		s.SetScreen(ScreenAbout)
		return true
	})
	s.actions.Add(input.ButtonMinus, "Toggle stats", func() bool {
		s.showPerf = !s.showPerf
		return true
	})
	s.actions.SetHidden(input.ButtonMinus, true)
	s.actions.Add(input.ButtonB, "Back", func() bool {
		s.SetScreen(ScreenMain)
		return true
	})
	if opts.Exit != input.ButtonNone {
		s.actions.Add(opts.Exit, ExitHint, nil)
	}
	s.applyScreen()
	return s, nil
}

func (s *State) Actions() *ActionTable { return &s.actions }
func (s *State) Perf() *PerfGraph      { return s.perf }
func (s *State) Fonts() *FontStash     { return s.fonts }
func (s *State) Theme() *Theme         { return &s.theme }
func (s *State) Screen() Screen        { return s.screen }
func (s *State) Renderer() *Renderer   { return s.renderer }

// PerfVisible reports whether the timing graph is drawn.
func (s *State) PerfVisible() bool { return s.showPerf }

// SetScreen switches screens, updates action availability and queues a
// ScreenChanged event. Switching to the current screen does nothing.
func (s *State) SetScreen(screen Screen) {
	if screen == s.screen {
		return
	}
	s.screen = screen
	s.applyScreen()
	Logger().Debug("screen changed", "screen", screen)
	s.pending = append(s.pending, screen)
}

// FlushEvents fires the queued ScreenChanged events in order.
func (s *State) FlushEvents() {
	pending := s.pending
	s.pending = nil
	for _, screen := range pending {
		s.ScreenChanged.Fire(screen)
	}
}

func (s *State) applyScreen() {
	main := s.screen == ScreenMain
	s.actions.SetAvailable(input.ButtonA, main)
	s.actions.SetAvailable(input.ButtonX, main)
	s.actions.SetAvailable(input.ButtonMinus, main)
	s.actions.SetAvailable(input.ButtonB, !main)
}

// Update applies one tick of input.
func (s *State) Update(snap input.Snapshot) {
	s.actions.Dispatch(snap)
}

// Draw draws the current screen, without the timing graph.
func (s *State) Draw(fc *FrameContext) error {
	dc := fc.VG
	k := fc.PixelRatio
	th := fc.Theme
	if th == nil {
		th = &s.theme
	}

	dc.ClearWithColor(th.Background)

	title, err := fc.Fonts.Face(titleSize * k)
	if err != nil {
		return err
	}
	body, err := fc.Fonts.Face(bodySize * k)
	if err != nil {
		return err
	}

	// header
	dc.SetFont(title)
	dc.SetColor(th.Text.Color())
	dc.DrawStringAnchored(s.title(), sideMargin*k, headerHeight*k/2, 0, 0.5)
	if err := s.separator(dc, headerHeight*k-1, fc.Width, k, th); err != nil {
		return err
	}

	// body
	dc.SetFont(body)
	y := (headerHeight + 40) * k
	for _, line := range s.bodyLines() {
		dc.SetColor(th.TextDim.Color())
		dc.DrawStringAnchored(line, sideMargin*k, y, 0, 1)
		y += bodySize * k * 1.6
	}

	return s.drawHints(fc, th)
}

// DrawPerf draws the timing graph when it is visible.
func (s *State) DrawPerf(fc *FrameContext) error {
	if !s.showPerf {
		return nil
	}
	return s.perf.Render(fc, 5*fc.PixelRatio, (headerHeight+5)*fc.PixelRatio)
}

func (s *State) title() string {
	if s.screen == ScreenAbout {
		return "About"
	}
	return "nxshell"
}

func (s *State) bodyLines() []string {
	if s.screen == ScreenAbout {
		return []string{
			"A resource lifetime and frame scheduling shell.",
			"Framebuffers are rebuilt on every display mode change.",
		}
	}
	w, h := s.renderer.Dimensions()
	return []string{
		fmt.Sprintf("Framebuffer %d x %d", w, h),
		"Graph style: " + s.perf.Style().String(),
	}
}

func (s *State) separator(dc *gg.Context, y, width, k float64, th *Theme) error {
	dc.SetColor(th.Separator.Color())
	dc.DrawRectangle(sideMargin*k, y, width-2*sideMargin*k, max(k, 1))
	return dc.Fill()
}

func (s *State) drawHints(fc *FrameContext, th *Theme) error {
	dc := fc.VG
	k := fc.PixelRatio
	top := fc.Height - footerHeight*k
	if err := s.separator(dc, top, fc.Width, k, th); err != nil {
		return err
	}
	face, err := fc.Fonts.Face(hintSize * k)
	if err != nil {
		return err
	}
	dc.SetFont(face)
	dc.SetColor(th.Text.Color())

	x := fc.Width - sideMargin*k
	hints := s.actions.Hints()
	for i := len(hints) - 1; i >= 0; i-- {
		label := hints[i].Button.String() + "  " + hints[i].Hint
		w, _ := dc.MeasureString(label)
		dc.DrawStringAnchored(label, x, top+footerHeight*k/2, 1, 0.5)
		x -= w + 40*k
	}
	return nil
}

// HintLabels returns the labels the hint bar shows, left to right.
func (s *State) HintLabels() []string {
	var out []string
	for _, a := range s.actions.Hints() {
		out = append(out, a.Button.String()+"  "+a.Hint)
	}
	return out
}

// Close releases the fonts. The renderer is owned by the caller.
func (s *State) Close() error {
	if s.fonts == nil {
		return nil
	}
	err := s.fonts.Close()
	s.fonts = nil
	return err
}
