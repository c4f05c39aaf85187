package window

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"
)

// Window is an ebiten.Game presenting a Panel. The emulation itself runs
// elsewhere; the window only polls input and draws the latest transfer.
type Window struct {
	ctx    context.Context
	panel  *Panel
	keys   *Keymap
	input  InputSink
	frames uint64

	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
}

// New creates a window for panel. Input is forwarded to input as player 0
// when both keys and input are non-nil. The game ends when ctx is done.
func New(ctx context.Context, panel *Panel, keys *Keymap, input InputSink) *Window {
	return &Window{
		ctx:   ctx,
		panel: panel,
		keys:  keys,
		input: input,
	}
}

// Run opens the window at scale times the panel size and blocks until it
// is closed or ctx is done. It must be called from the main goroutine.
func (w *Window) Run(title string, scale int) error {
	if scale < 1 {
		scale = 1
	}
	pw, ph := w.panel.Size()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(pw*scale, ph*scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := ebiten.RunGame(w)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	select {
	case <-w.ctx.Done():
		return ebiten.Termination
	default:
	}

	if w.keys != nil && w.input != nil && ebiten.IsFocused() {
		w.input.SetButtons(0, w.keys.Poll())
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	pw, ph := w.panel.Size()
	if w.offscreen == nil {
		w.offscreen = ebiten.NewImage(pw, ph)
	}

	pixels, frames := w.panel.Read()
	if frames != w.frames {
		w.offscreen.WritePixels(pixels)
		w.frames = frames
	}

	// Scale to fit the window while preserving aspect ratio, then center.
	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale := min(float64(screenW)/float64(pw), float64(screenH)/float64(ph))
	offsetX := (float64(screenW) - float64(pw)*scale) / 2
	offsetY := (float64(screenH) - float64(ph)*scale) / 2

	w.drawOpts.GeoM.Reset()
	w.drawOpts.GeoM.Scale(scale, scale)
	w.drawOpts.GeoM.Translate(offsetX, offsetY)
	w.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(w.offscreen, &w.drawOpts)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
