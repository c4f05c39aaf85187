package st7789

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Config names the host resources for a panel.
type Config struct {
	SPIPort  string // spireg name, empty for the first port
	SPIClock int    // Hz
	DCPin    string
	RSTPin   string
	CSPin    string // empty when the SPI controller drives chip select
	BLPin    string // empty when the backlight is always on
	Width    int    // native width at rotation 0
	Height   int    // native height at rotation 0
	Rotation int
}

// DefaultConfig is the wiring of the reference board: a 240x320 panel in
// landscape on SPI0 at 60MHz.
func DefaultConfig() Config {
	return Config{
		SPIClock: 60_000_000,
		DCPin:    "GPIO25",
		RSTPin:   "GPIO27",
		BLPin:    "GPIO24",
		Width:    240,
		Height:   320,
		Rotation: 1,
	}
}

// Open initialises the host drivers, connects the SPI port and pins
// described by cfg and brings the panel up.
func Open(cfg Config) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("st7789: host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("st7789: open SPI port %q: %w", cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.Frequency(cfg.SPIClock)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("st7789: connect SPI: %w", err)
	}

	var pins Pins
	lines := []struct {
		name     string
		dst      *Pin
		required bool
	}{
		{cfg.DCPin, &pins.DC, true},
		{cfg.RSTPin, &pins.RST, true},
		{cfg.CSPin, &pins.CS, false},
		{cfg.BLPin, &pins.BL, false},
	}
	for _, l := range lines {
		if l.name == "" {
			if l.required {
				port.Close()
				return nil, ErrPins
			}
			continue
		}
		p, err := lookupPin(l.name)
		if err != nil {
			port.Close()
			return nil, err
		}
		*l.dst = p
	}

	d, err := New(conn, pins, cfg.Width, cfg.Height)
	if err != nil {
		port.Close()
		return nil, err
	}
	d.closer = port.Close

	if err := d.Init(cfg.Rotation); err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("st7789: no GPIO named %q", name)
	}
	return p, nil
}
