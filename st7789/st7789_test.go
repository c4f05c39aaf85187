package st7789

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/user-none/eblitpi/display"
)

// fakeLine records the level of one control line.
type fakeLine struct {
	name  string
	level gpio.Level
	log   *[]string
}

func (l *fakeLine) Out(v gpio.Level) error {
	l.level = v
	if l.log != nil {
		*l.log = append(*l.log, l.name+"="+v.String())
	}
	return nil
}

// write is one SPI transaction and the DC level it was sent with.
type write struct {
	data bool
	b    []byte
}

// fakeBus records every transaction.
type fakeBus struct {
	dc     *fakeLine
	writes []write
	fail   error
}

func (b *fakeBus) Tx(w, r []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.writes = append(b.writes, write{data: bool(b.dc.level), b: append([]byte(nil), w...)})
	return nil
}

// commands returns the command bytes in send order.
func (b *fakeBus) commands() []byte {
	var out []byte
	for _, w := range b.writes {
		if !w.data {
			out = append(out, w.b...)
		}
	}
	return out
}

// params returns the data bytes sent after the first occurrence of cmd.
func (b *fakeBus) params(cmd byte) []byte {
	for i, w := range b.writes {
		if w.data || len(w.b) != 1 || w.b[0] != cmd {
			continue
		}
		var out []byte
		for _, d := range b.writes[i+1:] {
			if !d.data {
				break
			}
			out = append(out, d.b...)
		}
		return out
	}
	return nil
}

func newTestDevice(t *testing.T, withCS bool) (*Device, *fakeBus, *[]string, *[]time.Duration) {
	t.Helper()

	var events []string
	var sleeps []time.Duration

	dc := &fakeLine{name: "DC"}
	rst := &fakeLine{name: "RST", log: &events}
	bl := &fakeLine{name: "BL", log: &events}
	pins := Pins{DC: dc, RST: rst, BL: bl}
	if withCS {
		pins.CS = &fakeLine{name: "CS", log: &events}
	}

	bus := &fakeBus{dc: dc}
	d, err := New(bus, pins, 240, 320)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	d.sleep = func(v time.Duration) { sleeps = append(sleeps, v) }
	return d, bus, &events, &sleeps
}

// TestDevice_Init tests the reset timing and command order
func TestDevice_Init(t *testing.T) {
	d, bus, events, sleeps := newTestDevice(t, false)

	if err := d.Init(1); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	wantEvents := []string{"RST=High", "RST=Low", "RST=High", "BL=High"}
	if len(*events) != len(wantEvents) {
		t.Fatalf("expected events %v, got %v", wantEvents, *events)
	}
	for i := range wantEvents {
		if (*events)[i] != wantEvents[i] {
			t.Fatalf("event %d: expected %s, got %s", i, wantEvents[i], (*events)[i])
		}
	}

	wantSleeps := []time.Duration{5 * time.Millisecond, 20 * time.Millisecond, 150 * time.Millisecond, 120 * time.Millisecond}
	for i, v := range wantSleeps {
		if i >= len(*sleeps) || (*sleeps)[i] != v {
			t.Fatalf("expected sleeps %v, got %v", wantSleeps, *sleeps)
		}
	}

	cmds := bus.commands()
	wantCmds := []byte{0x11, 0x36, 0x3A, 0xB0, 0xB2, 0xB7, 0xBB, 0xC2, 0xC3, 0xC4, 0xC6, 0xD0, 0xE0, 0xE1, 0x21, 0x29}
	if !bytes.Equal(cmds, wantCmds) {
		t.Fatalf("expected commands % x, got % x", wantCmds, cmds)
	}

	if p := bus.params(0x36); !bytes.Equal(p, []byte{0xA0}) {
		t.Errorf("expected MADCTL 0xA0 for rotation 1, got % x", p)
	}
	if p := bus.params(0xB0); !bytes.Equal(p, []byte{0x00, 0xF8}) {
		t.Errorf("expected little endian RAM control, got % x", p)
	}
	if p := bus.params(0xE0); len(p) != 14 {
		t.Errorf("expected 14 positive gamma values, got %d", len(p))
	}
}

// TestDevice_Rotation tests MADCTL values and the width/height swap
func TestDevice_Rotation(t *testing.T) {
	tests := []struct {
		rotation int
		madctl   byte
		w, h     int
	}{
		{0, 0x00, 240, 320},
		{1, 0xA0, 320, 240},
		{2, 0xC0, 240, 320},
		{3, 0x70, 320, 240},
		{5, 0xA0, 320, 240},
	}

	for _, tt := range tests {
		d, bus, _, _ := newTestDevice(t, false)
		if err := d.SetRotation(tt.rotation); err != nil {
			t.Fatalf("rotation %d: %v", tt.rotation, err)
		}
		if p := bus.params(0x36); !bytes.Equal(p, []byte{tt.madctl}) {
			t.Errorf("rotation %d: expected MADCTL %#02x, got % x", tt.rotation, tt.madctl, p)
		}
		if w, h := d.Size(); w != tt.w || h != tt.h {
			t.Errorf("rotation %d: expected %dx%d, got %dx%d", tt.rotation, tt.w, tt.h, w, h)
		}
	}
}

// TestDevice_TransferRGBA tests window setup, RGB565 conversion and chunking
func TestDevice_TransferRGBA(t *testing.T) {
	d, bus, _, _ := newTestDevice(t, false)
	d.SetRotation(1)
	bus.writes = nil

	const w, h = 320, 240
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = 0xFF // red
		pix[i+3] = 0xFF
	}
	r := display.Region{X: 0, Y: 0, W: w, H: h, Format: display.FormatRGBA, Pix: pix}
	if err := d.Transfer(r); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if p := bus.params(0x2A); !bytes.Equal(p, []byte{0, 0, 0x01, 0x3F}) {
		t.Errorf("expected X window 0..319, got % x", p)
	}
	if p := bus.params(0x2B); !bytes.Equal(p, []byte{0, 0, 0, 0xEF}) {
		t.Errorf("expected Y window 0..239, got % x", p)
	}

	pixels := bus.params(0x2C)
	if len(pixels) != w*h*2 {
		t.Fatalf("expected %d pixel bytes, got %d", w*h*2, len(pixels))
	}
	for i := 0; i < len(pixels); i += 2 {
		if pixels[i] != 0x00 || pixels[i+1] != 0xF8 {
			t.Fatalf("pixel %d: expected 00 f8, got %02x %02x", i/2, pixels[i], pixels[i+1])
		}
	}

	for _, wr := range bus.writes {
		if len(wr.b) > MaxChunk {
			t.Fatalf("SPI write of %d bytes exceeds %d", len(wr.b), MaxChunk)
		}
	}
}

// TestDevice_TransferRGB565Stride tests that panel-native rows skip stride padding
func TestDevice_TransferRGB565Stride(t *testing.T) {
	d, bus, _, _ := newTestDevice(t, false)

	pix := []byte{
		1, 2, 3, 4, 0xEE, 0xEE,
		5, 6, 7, 8, 0xEE, 0xEE,
	}
	r := display.Region{X: 10, Y: 20, W: 2, H: 2, Stride: 6, Format: display.FormatRGB565, Pix: pix}
	if err := d.Transfer(r); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if p := bus.params(0x2C); !bytes.Equal(p, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("unexpected pixel stream % x", p)
	}
	if p := bus.params(0x2A); !bytes.Equal(p, []byte{0, 10, 0, 11}) {
		t.Errorf("unexpected X window % x", p)
	}
}

// TestDevice_TransferOutOfBounds tests that regions past the panel are rejected before any bus traffic
func TestDevice_TransferOutOfBounds(t *testing.T) {
	d, bus, _, _ := newTestDevice(t, false)

	r := display.Region{X: 200, Y: 0, W: 64, H: 1, Pix: make([]byte, 64*4)}
	if err := d.Transfer(r); !errors.Is(err, display.ErrRegion) {
		t.Fatalf("expected ErrRegion, got %v", err)
	}
	if len(bus.writes) != 0 {
		t.Fatalf("expected no bus traffic, got %d writes", len(bus.writes))
	}
}

// TestDevice_Fill tests that fill covers the panel in chunked writes
func TestDevice_Fill(t *testing.T) {
	d, bus, _, _ := newTestDevice(t, false)

	if err := d.Fill(0x1234); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	p := bus.params(0x2C)
	if len(p) != 240*320*2 {
		t.Fatalf("expected %d bytes, got %d", 240*320*2, len(p))
	}
	if p[0] != 0x34 || p[1] != 0x12 {
		t.Fatalf("expected little endian colour, got %02x %02x", p[0], p[1])
	}
}

// TestDevice_ChipSelect tests that a hand-driven CS brackets every transaction
func TestDevice_ChipSelect(t *testing.T) {
	d, _, events, _ := newTestDevice(t, true)

	if err := d.DrawPixel(1, 1, 0xFFFF); err != nil {
		t.Fatalf("DrawPixel failed: %v", err)
	}
	if len(*events) == 0 || len(*events)%2 != 0 {
		t.Fatalf("expected paired CS events, got %v", *events)
	}
	for i := 0; i < len(*events); i += 2 {
		if (*events)[i] != "CS=Low" || (*events)[i+1] != "CS=High" {
			t.Fatalf("CS events out of order at %d: %v", i, *events)
		}
	}
}

// TestDevice_BusError tests that a failing bus is reported through Transfer
func TestDevice_BusError(t *testing.T) {
	d, bus, _, _ := newTestDevice(t, false)
	bus.fail = errors.New("spi: device busy")

	r := display.Region{W: 1, H: 1, Pix: make([]byte, 4)}
	if err := d.Transfer(r); !errors.Is(err, bus.fail) {
		t.Fatalf("expected bus error, got %v", err)
	}
}

// TestNew_RequiresPins tests the required control lines
func TestNew_RequiresPins(t *testing.T) {
	if _, err := New(&fakeBus{}, Pins{DC: &fakeLine{}}, 240, 320); !errors.Is(err, ErrPins) {
		t.Fatalf("expected ErrPins, got %v", err)
	}
}
