package main

import (
	"errors"
	"testing"

	"github.com/user-none/eblitpi/config"
	"github.com/user-none/eblitpi/display"
	"github.com/user-none/eblitpi/signalcore"
	emucore "github.com/user-none/eblitui/api"
)

func TestSelectRegion(t *testing.T) {
	factory := &signalcore.Factory{}
	testCases := []struct {
		name     string
		expected emucore.Region
	}{
		{"ntsc", emucore.RegionNTSC},
		{"PAL", emucore.RegionPAL},
		{"", emucore.RegionNTSC},
	}

	for _, tc := range testCases {
		if got := selectRegion(tc.name, factory, nil); got != tc.expected {
			t.Errorf("selectRegion(%q): expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestOpenTransport_Memory(t *testing.T) {
	cfg := config.DefaultConfig().Display
	cfg.Transport = "memory"

	out, err := openTransport(cfg)
	if err != nil {
		t.Fatalf("openTransport failed: %v", err)
	}
	defer out.Close()

	if _, ok := out.transport.(*display.Memory); !ok {
		t.Errorf("expected *display.Memory, got %T", out.transport)
	}
	if out.panel != nil {
		t.Error("memory transport should not have a window panel")
	}
}

func TestOpenTransport_Window(t *testing.T) {
	cfg := config.DefaultConfig().Display
	cfg.Transport = "window"

	out, err := openTransport(cfg)
	if err != nil {
		t.Fatalf("openTransport failed: %v", err)
	}
	if out.panel == nil {
		t.Fatal("window transport should expose its panel")
	}
	if w, h := out.panel.Size(); w != cfg.Width || h != cfg.Height {
		t.Errorf("panel size: expected %dx%d, got %dx%d", cfg.Width, cfg.Height, w, h)
	}
}

func TestOpenTransport_Unknown(t *testing.T) {
	cfg := config.DefaultConfig().Display
	cfg.Transport = "hdmi"

	if _, err := openTransport(cfg); !errors.Is(err, display.ErrUnknownTransport) {
		t.Errorf("expected ErrUnknownTransport, got %v", err)
	}
}
