package display

import (
	"errors"
	"testing"
)

// TestMemory_TransferRGBA tests that a region lands at its origin with stride honoured
func TestMemory_TransferRGBA(t *testing.T) {
	m := NewMemory(4, 4)

	// 2x2 region with 4 bytes of row padding
	pix := []byte{
		1, 2, 3, 255, 4, 5, 6, 255, 0, 0, 0, 0,
		7, 8, 9, 255, 10, 11, 12, 255, 0, 0, 0, 0,
	}
	r := Region{X: 1, Y: 2, W: 2, H: 2, Stride: 12, Format: FormatRGBA, Pix: pix}
	if err := m.Transfer(r); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	img := m.Snapshot()
	tests := []struct {
		x, y    int
		r, g, b uint8
	}{
		{1, 2, 1, 2, 3},
		{2, 2, 4, 5, 6},
		{1, 3, 7, 8, 9},
		{2, 3, 10, 11, 12},
		{0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		c := img.RGBAAt(tt.x, tt.y)
		if c.R != tt.r || c.G != tt.g || c.B != tt.b {
			t.Errorf("pixel %d,%d: expected %d,%d,%d got %d,%d,%d", tt.x, tt.y, tt.r, tt.g, tt.b, c.R, c.G, c.B)
		}
	}
	if m.Transfers() != 1 {
		t.Fatalf("expected 1 transfer, got %d", m.Transfers())
	}
}

// TestMemory_TransferRGB565 tests conversion from the panel-native format
func TestMemory_TransferRGB565(t *testing.T) {
	m := NewMemory(1, 1)
	v := PackRGB565(255, 0, 255)
	r := Region{W: 1, H: 1, Format: FormatRGB565, Pix: []byte{byte(v), byte(v >> 8)}}
	if err := m.Transfer(r); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	c := m.Snapshot().RGBAAt(0, 0)
	if c.R != 255 || c.G != 0 || c.B != 255 || c.A != 255 {
		t.Fatalf("expected magenta, got %+v", c)
	}
}

// TestMemory_RejectsOutOfBounds tests that regions past the panel edge fail
func TestMemory_RejectsOutOfBounds(t *testing.T) {
	m := NewMemory(4, 4)
	r := Region{X: 3, Y: 0, W: 2, H: 1, Pix: make([]byte, 8)}
	if err := m.Transfer(r); !errors.Is(err, ErrRegion) {
		t.Fatalf("expected ErrRegion, got %v", err)
	}
	if m.Transfers() != 0 {
		t.Fatal("failed transfer was counted")
	}
}

// TestRelay_WithMemory tests a full frame through the relay into the in-memory panel
func TestRelay_WithMemory(t *testing.T) {
	m := NewMemory(8, 8)
	relay := startRelay(t, m, 4*4*4)

	buf := relay.Acquire()
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = 0x20, 0x40, 0x60, 0xFF
	}
	if err := relay.Submit(Region{X: 2, Y: 2, W: 4, H: 4, Format: FormatRGBA, Pix: buf}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	relay.WaitDone()

	img := m.Snapshot()
	if c := img.RGBAAt(5, 5); c.R != 0x20 || c.G != 0x40 || c.B != 0x60 {
		t.Fatalf("inside pixel: got %+v", c)
	}
	if c := img.RGBAAt(6, 6); c.A != 0 {
		t.Fatalf("outside pixel was drawn: %+v", c)
	}
}

// TestPixel_RoundTrip tests RGB565 packing of primaries and white
func TestPixel_RoundTrip(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		packed  uint16
	}{
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
		{0, 0, 0, 0x0000},
	}
	for _, tt := range tests {
		v := PackRGB565(tt.r, tt.g, tt.b)
		if v != tt.packed {
			t.Errorf("pack %d,%d,%d: expected %#04x, got %#04x", tt.r, tt.g, tt.b, tt.packed, v)
		}
		r, g, b := UnpackRGB565(v)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("unpack %#04x: expected %d,%d,%d got %d,%d,%d", v, tt.r, tt.g, tt.b, r, g, b)
		}
	}
}

// TestRGBAToRGB565 tests bulk conversion and its length limit
func TestRGBAToRGB565(t *testing.T) {
	src := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	dst := make([]byte, 2)
	if n := RGBAToRGB565(dst, src); n != 1 {
		t.Fatalf("expected 1 pixel into a 2-byte buffer, got %d", n)
	}
	if dst[0] != 0x00 || dst[1] != 0xF8 {
		t.Fatalf("expected little-endian 0xF800, got %#x %#x", dst[0], dst[1])
	}
}
