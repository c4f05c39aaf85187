package main

import (
	"fmt"
	"strings"

	"github.com/user-none/eblitpi/config"
	"github.com/user-none/eblitpi/display"
	"github.com/user-none/eblitpi/st7789"
	"github.com/user-none/eblitpi/window"
)

// output is an opened display transport.
type output struct {
	transport display.Transport
	panel     *window.Panel // set for the window transport
	closer    func() error
}

func (o *output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}

// openTransport opens the display transport named in cfg.
func openTransport(cfg config.DisplayConfig) (*output, error) {
	switch strings.ToLower(cfg.Transport) {
	case "st7789":
		stCfg := st7789.Config{
			SPIPort:  cfg.SPI.Port,
			SPIClock: int(cfg.SPI.ClockHz),
			DCPin:    cfg.SPI.DC,
			RSTPin:   cfg.SPI.RST,
			CSPin:    cfg.SPI.CS,
			BLPin:    cfg.SPI.BL,
			Width:    cfg.Width,
			Height:   cfg.Height,
			Rotation: cfg.Rotation,
		}
		// Config sizes are after rotation; the driver wants portrait.
		if cfg.Rotation%2 == 1 {
			stCfg.Width, stCfg.Height = cfg.Height, cfg.Width
		}
		dev, err := st7789.Open(stCfg)
		if err != nil {
			return nil, err
		}
		if err := dev.Fill(0); err != nil {
			dev.Close()
			return nil, fmt.Errorf("st7789: clear panel: %w", err)
		}
		return &output{transport: dev, closer: dev.Close}, nil

	case "window":
		panel := window.NewPanel(cfg.Width, cfg.Height)
		return &output{transport: panel, panel: panel}, nil

	case "memory":
		return &output{transport: display.NewMemory(cfg.Width, cfg.Height)}, nil
	}
	return nil, fmt.Errorf("%w: %q", display.ErrUnknownTransport, cfg.Transport)
}
