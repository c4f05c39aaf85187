package display

import (
	"fmt"
	"image"
	"sync"
)

// Memory is a Transport that draws into an in-memory RGBA panel. It stands
// in for real hardware in tests and headless runs.
type Memory struct {
	mu        sync.Mutex
	panel     *image.RGBA
	transfers int
}

// NewMemory creates a blank panel of the given size.
func NewMemory(width, height int) *Memory {
	return &Memory{
		panel: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Transfer copies the region onto the panel, converting RGB565 to RGBA.
func (m *Memory) Transfer(r Region) error {
	if err := r.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.panel.Bounds()
	if !r.Fits(b.Dx(), b.Dy()) {
		return fmt.Errorf("%w: %dx%d at %d,%d outside %dx%d panel",
			ErrRegion, r.W, r.H, r.X, r.Y, b.Dx(), b.Dy())
	}

	for y := 0; y < r.H; y++ {
		off := m.panel.PixOffset(r.X, r.Y+y)
		dst := m.panel.Pix[off : off+r.W*4]
		src := r.Row(y)
		if r.Format == FormatRGB565 {
			RGB565ToRGBA(dst, src)
		} else {
			copy(dst, src)
		}
	}
	m.transfers++
	return nil
}

// Snapshot returns a copy of the panel contents.
func (m *Memory) Snapshot() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()

	img := image.NewRGBA(m.panel.Bounds())
	copy(img.Pix, m.panel.Pix)
	return img
}

// Transfers returns the number of successful transfers.
func (m *Memory) Transfers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfers
}
