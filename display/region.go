package display

import (
	"errors"
	"fmt"
)

// Format is the pixel layout of a Region.
type Format int

const (
	// FormatRGBA is 8-bit R, G, B, A per pixel, the layout emulator cores
	// render into.
	FormatRGBA Format = iota

	// FormatRGB565 is 16-bit little-endian 5-6-5, the native layout of
	// small SPI panels.
	FormatRGB565
)

// BytesPerPixel returns the size of one pixel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB565:
		return 2
	default:
		return 4
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatRGB565:
		return "rgb565"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ErrRegion is returned for a region that does not describe its pixel data
// or does not fit the target.
var ErrRegion = errors.New("invalid display region")

// Region is a rectangle of pixels to place at (X, Y) on the panel. Pix is
// borrowed, not copied: it must not be modified until the submission that
// carries it has completed.
type Region struct {
	X, Y   int
	W, H   int
	Stride int // Bytes between rows in Pix. Zero means tightly packed.
	Format Format
	Pix    []byte
}

// RowBytes returns the number of pixel bytes in one row.
func (r Region) RowBytes() int {
	return r.W * r.Format.BytesPerPixel()
}

func (r Region) stride() int {
	if r.Stride == 0 {
		return r.RowBytes()
	}
	return r.Stride
}

// Row returns the pixel bytes of row y, without stride padding.
func (r Region) Row(y int) []byte {
	off := y * r.stride()
	return r.Pix[off : off+r.RowBytes()]
}

// Validate checks that the region is non-empty and Pix holds every row.
func (r Region) Validate() error {
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrRegion, r.W, r.H)
	}
	if r.X < 0 || r.Y < 0 {
		return fmt.Errorf("%w: origin %d,%d", ErrRegion, r.X, r.Y)
	}
	if r.stride() < r.RowBytes() {
		return fmt.Errorf("%w: stride %d shorter than row %d", ErrRegion, r.stride(), r.RowBytes())
	}
	need := (r.H-1)*r.stride() + r.RowBytes()
	if len(r.Pix) < need {
		return fmt.Errorf("%w: %d bytes of pixel data, need %d", ErrRegion, len(r.Pix), need)
	}
	return nil
}

// Fits reports whether the region lies inside a panel of the given size.
func (r Region) Fits(width, height int) bool {
	return r.X+r.W <= width && r.Y+r.H <= height
}

// Bytes returns the number of pixel bytes the region carries.
func (r Region) Bytes() int {
	return r.RowBytes() * r.H
}
