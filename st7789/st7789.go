// Package st7789 drives a Sitronix ST7789 TFT panel over SPI and serves as
// a display.Transport for it.
package st7789

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/user-none/eblitpi/display"
)

// Panel commands.
const (
	cmdSleepOut   = 0x11
	cmdInvertOn   = 0x21
	cmdDisplayOn  = 0x29
	cmdSetX       = 0x2A
	cmdSetY       = 0x2B
	cmdWriteRAM   = 0x2C
	cmdMemAccess  = 0x36
	cmdPixelFmt   = 0x3A
	cmdRAMControl = 0xB0
	cmdPorch      = 0xB2
	cmdGateCtrl   = 0xB7
	cmdVCOM       = 0xBB
	cmdVDVVRHEn   = 0xC2
	cmdVRH        = 0xC3
	cmdVDV        = 0xC4
	cmdFrameRate  = 0xC6
	cmdPowerCtrl  = 0xD0
	cmdGammaPos   = 0xE0
	cmdGammaNeg   = 0xE1
)

// MaxChunk is the largest single SPI write. spidev rejects larger transfers
// with its default buffer size.
const MaxChunk = 4096

// Bus is the SPI connection to the panel. periph's spi.Conn satisfies it.
type Bus interface {
	Tx(w, r []byte) error
}

// Pin is an output line to the panel. periph's gpio.PinIO satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// Pins are the control lines. DC and RST are required. CS and BL may be
// nil when the SPI controller drives chip select or the backlight is hard
// wired.
type Pins struct {
	DC  Pin
	RST Pin
	CS  Pin
	BL  Pin
}

// ErrPins is returned when a required control line is missing.
var ErrPins = errors.New("st7789: DC and RST pins are required")

// madctl is the memory access control value for each rotation.
var madctl = [4]byte{0x00, 0xA0, 0xC0, 0x70}

// initSequence runs after sleep out and rotation.
var initSequence = []struct {
	cmd  byte
	data []byte
}{
	{cmdPixelFmt, []byte{0x05}},
	// RAM control: little endian pixels
	{cmdRAMControl, []byte{0x00, 0xF8}},
	{cmdPorch, []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}},
	{cmdGateCtrl, []byte{0x35}},
	// VCOM 1.35V
	{cmdVCOM, []byte{0x32}},
	{cmdVDVVRHEn, []byte{0x01}},
	// GVDD 4.8V, VDV 0V, 60Hz
	{cmdVRH, []byte{0x15}},
	{cmdVDV, []byte{0x20}},
	{cmdFrameRate, []byte{0x0F}},
	{cmdPowerCtrl, []byte{0xA4, 0xA1}},
	{cmdGammaPos, []byte{0xD0, 0x08, 0x0E, 0x09, 0x09, 0x05, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34}},
	{cmdGammaNeg, []byte{0xD0, 0x08, 0x0E, 0x09, 0x09, 0x15, 0x31, 0x33, 0x48, 0x17, 0x14, 0x15, 0x31, 0x34}},
	{cmdInvertOn, nil},
	{cmdDisplayOn, nil},
}

// Device is an ST7789 panel.
type Device struct {
	bus  Bus
	pins Pins

	// Native resolution at rotation 0.
	nativeW, nativeH int

	width, height int
	rotation      int

	chunk  []byte
	closer func() error

	sleep func(time.Duration)
}

// New creates a device on an already connected bus. nativeW and nativeH
// are the panel's portrait resolution, typically 240x320.
func New(bus Bus, pins Pins, nativeW, nativeH int) (*Device, error) {
	if pins.DC == nil || pins.RST == nil {
		return nil, ErrPins
	}
	if nativeW <= 0 || nativeH <= 0 {
		return nil, fmt.Errorf("st7789: invalid resolution %dx%d", nativeW, nativeH)
	}
	return &Device{
		bus:     bus,
		pins:    pins,
		nativeW: nativeW,
		nativeH: nativeH,
		width:   nativeW,
		height:  nativeH,
		chunk:   make([]byte, MaxChunk),
		sleep:   time.Sleep,
	}, nil
}

// Init hard resets the panel, wakes it and applies the power, gamma and
// pixel format settings, then sets the rotation.
func (d *Device) Init(rotation int) error {
	steps := []struct {
		level gpio.Level
		wait  time.Duration
	}{
		{gpio.High, 5 * time.Millisecond},
		{gpio.Low, 20 * time.Millisecond},
		{gpio.High, 150 * time.Millisecond},
	}
	for _, s := range steps {
		if err := d.pins.RST.Out(s.level); err != nil {
			return fmt.Errorf("st7789: reset: %w", err)
		}
		d.sleep(s.wait)
	}

	if err := d.command(cmdSleepOut); err != nil {
		return err
	}
	d.sleep(120 * time.Millisecond)

	if err := d.SetRotation(rotation); err != nil {
		return err
	}

	for _, c := range initSequence {
		if err := d.command(c.cmd, c.data...); err != nil {
			return err
		}
	}

	return d.Backlight(true)
}

// SetRotation selects one of four orientations. Odd rotations swap width
// and height.
func (d *Device) SetRotation(r int) error {
	r &= 3
	if err := d.command(cmdMemAccess, madctl[r]); err != nil {
		return err
	}
	d.rotation = r
	if r&1 == 1 {
		d.width, d.height = d.nativeH, d.nativeW
	} else {
		d.width, d.height = d.nativeW, d.nativeH
	}
	return nil
}

// Size returns the panel size at the current rotation.
func (d *Device) Size() (width, height int) {
	return d.width, d.height
}

// Rotation returns the current rotation.
func (d *Device) Rotation() int {
	return d.rotation
}

// Backlight switches the backlight if the pin is wired.
func (d *Device) Backlight(on bool) error {
	if d.pins.BL == nil {
		return nil
	}
	if err := d.pins.BL.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("st7789: backlight: %w", err)
	}
	return nil
}

// SetWindow sets the inclusive address window and starts a RAM write.
func (d *Device) SetWindow(x0, y0, x1, y1 int) error {
	if x0 < 0 || y0 < 0 || x1 < x0 || y1 < y0 {
		return fmt.Errorf("%w: window %d,%d-%d,%d", display.ErrRegion, x0, y0, x1, y1)
	}
	if err := d.command(cmdSetX, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdSetY, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdWriteRAM)
}

// Fill paints the whole panel with an RGB565 colour.
func (d *Device) Fill(color uint16) error {
	if err := d.SetWindow(0, 0, d.width-1, d.height-1); err != nil {
		return err
	}

	for i := 0; i < len(d.chunk); i += 2 {
		d.chunk[i] = byte(color)
		d.chunk[i+1] = byte(color >> 8)
	}

	remaining := d.width * d.height * 2
	return d.withCS(func() error {
		if err := d.pins.DC.Out(gpio.High); err != nil {
			return err
		}
		for remaining > 0 {
			n := min(remaining, len(d.chunk))
			if err := d.bus.Tx(d.chunk[:n], nil); err != nil {
				return err
			}
			remaining -= n
		}
		return nil
	})
}

// DrawPixel sets a single pixel. Pixels off the panel are ignored.
func (d *Device) DrawPixel(x, y int, color uint16) error {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return nil
	}
	if err := d.SetWindow(x, y, x, y); err != nil {
		return err
	}
	return d.data([]byte{byte(color), byte(color >> 8)})
}

// Transfer writes a region to the panel. RGBA pixels are converted to
// RGB565 on the way out, one chunk at a time.
func (d *Device) Transfer(r display.Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !r.Fits(d.width, d.height) {
		return fmt.Errorf("%w: %dx%d at %d,%d outside %dx%d panel",
			display.ErrRegion, r.W, r.H, r.X, r.Y, d.width, d.height)
	}

	if err := d.SetWindow(r.X, r.Y, r.X+r.W-1, r.Y+r.H-1); err != nil {
		return err
	}

	return d.withCS(func() error {
		if err := d.pins.DC.Out(gpio.High); err != nil {
			return err
		}
		if r.Format == display.FormatRGB565 {
			return d.sendRGB565(r)
		}
		return d.sendRGBA(r)
	})
}

// sendRGB565 streams panel-native rows, merging them into one stream when
// the region is tightly packed.
func (d *Device) sendRGB565(r display.Region) error {
	if r.Stride == 0 || r.Stride == r.RowBytes() {
		return d.stream(r.Pix[:r.Bytes()])
	}
	for y := 0; y < r.H; y++ {
		if err := d.stream(r.Row(y)); err != nil {
			return err
		}
	}
	return nil
}

// sendRGBA converts rows into the chunk buffer and flushes it whenever it
// fills.
func (d *Device) sendRGBA(r display.Region) error {
	used := 0
	for y := 0; y < r.H; y++ {
		row := r.Row(y)
		for len(row) > 0 {
			n := display.RGBAToRGB565(d.chunk[used:], row)
			used += n * 2
			row = row[n*4:]
			if used == len(d.chunk) {
				if err := d.bus.Tx(d.chunk, nil); err != nil {
					return err
				}
				used = 0
			}
		}
	}
	if used > 0 {
		return d.bus.Tx(d.chunk[:used], nil)
	}
	return nil
}

// stream writes p in chunks no larger than MaxChunk.
func (d *Device) stream(p []byte) error {
	for len(p) > 0 {
		n := min(len(p), MaxChunk)
		if err := d.bus.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// command sends a command byte followed by its parameters.
func (d *Device) command(cmd byte, params ...byte) error {
	err := d.withCS(func() error {
		if err := d.pins.DC.Out(gpio.Low); err != nil {
			return err
		}
		return d.bus.Tx([]byte{cmd}, nil)
	})
	if err != nil {
		return fmt.Errorf("st7789: command %#02x: %w", cmd, err)
	}
	if len(params) == 0 {
		return nil
	}
	if err := d.data(params); err != nil {
		return fmt.Errorf("st7789: command %#02x: %w", cmd, err)
	}
	return nil
}

func (d *Device) data(p []byte) error {
	return d.withCS(func() error {
		if err := d.pins.DC.Out(gpio.High); err != nil {
			return err
		}
		return d.stream(p)
	})
}

// withCS asserts chip select around fn when the line is driven by hand.
func (d *Device) withCS(fn func() error) error {
	if d.pins.CS == nil {
		return fn()
	}
	if err := d.pins.CS.Out(gpio.Low); err != nil {
		return err
	}
	err := fn()
	if csErr := d.pins.CS.Out(gpio.High); err == nil {
		err = csErr
	}
	return err
}

// Close switches off the backlight and releases the bus.
func (d *Device) Close() error {
	blErr := d.Backlight(false)
	if d.closer != nil {
		if err := d.closer(); err != nil {
			return err
		}
	}
	return blErr
}
