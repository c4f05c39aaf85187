// Package window presents the display relay's output in a desktop window.
//
// It stands in for an SPI panel when developing off the target board: the
// relay's transfer goroutine writes regions into a Panel, and Ebiten's
// Draw presents the panel scaled to the window.
package window

import (
	"fmt"
	"sync"

	"github.com/user-none/eblitpi/display"
)

// Panel is a display.Transport holding pixel data written by the transfer
// goroutine and read by Ebiten's Draw. It keeps separate write and read
// buffers so a transfer can land while Draw uses the read copy.
type Panel struct {
	mu          sync.Mutex
	width       int
	height      int
	writePixels []byte
	readPixels  []byte
	frames      uint64
}

// NewPanel creates a black panel of the given size in pixels.
func NewPanel(width, height int) *Panel {
	size := width * height * 4
	return &Panel{
		width:       width,
		height:      height,
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
	}
}

// Size returns the panel dimensions.
func (p *Panel) Size() (width, height int) {
	return p.width, p.height
}

// Transfer copies a region into the panel.
func (p *Panel) Transfer(r display.Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !r.Fits(p.width, p.height) {
		return fmt.Errorf("%w: %dx%d at %d,%d outside %dx%d window",
			display.ErrRegion, r.W, r.H, r.X, r.Y, p.width, p.height)
	}

	stride := p.width * 4

	p.mu.Lock()
	for y := 0; y < r.H; y++ {
		off := (r.Y+y)*stride + r.X*4
		dst := p.writePixels[off : off+r.W*4]
		if r.Format == display.FormatRGB565 {
			display.RGB565ToRGBA(dst, r.Row(y))
		} else {
			copy(dst, r.Row(y))
		}
	}
	p.frames++
	p.mu.Unlock()
	return nil
}

// Read returns a snapshot of the panel and the number of transfers so
// far. The snapshot is reused by the next Read, so it belongs to the
// Ebiten goroutine.
func (p *Panel) Read() (pixels []byte, frames uint64) {
	p.mu.Lock()
	copy(p.readPixels, p.writePixels)
	frames = p.frames
	p.mu.Unlock()
	return p.readPixels, frames
}
