package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/user-none/eblitpi/audio"
	"github.com/user-none/eblitpi/config"
	"github.com/user-none/eblitpi/display"
	"github.com/user-none/eblitpi/orchestrator"
	"github.com/user-none/eblitpi/romloader"
	"github.com/user-none/eblitpi/signalcore"
	"github.com/user-none/eblitpi/statsview"
	"github.com/user-none/eblitpi/window"
	emucore "github.com/user-none/eblitui/api"
)

func main() {
	romPath := flag.String("rom", "", "path to program file (built-in test card if not provided)")
	configPath := flag.String("config", "", "path to config.json (default $"+config.EnvConfigPath+" or user config dir)")
	regionFlag := flag.String("region", "", "region: auto, ntsc, or pal")
	sinkFlag := flag.String("sink", "", "audio sink: oto, sdl, wav, or none")
	deviceFlag := flag.String("device", "", "audio device name")
	volumeFlag := flag.Int("v", -1, "volume 0-100")
	wavFlag := flag.String("wav", "", "output file for the wav sink")
	transportFlag := flag.String("transport", "", "display transport: st7789, window, or memory")
	rotationFlag := flag.Int("rotation", -1, "panel rotation 0-3")
	statsFlag := flag.Duration("stats", -1, "stats logging interval, 0 to disable")
	writeConfig := flag.Bool("write-config", false, "save the effective configuration and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			log.Fatal(err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *regionFlag != "" {
		cfg.Emulation.Region = *regionFlag
	}
	if *sinkFlag != "" {
		cfg.Audio.Sink = *sinkFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}
	if *volumeFlag >= 0 {
		cfg.Audio.Volume = *volumeFlag
	}
	if *wavFlag != "" {
		cfg.Audio.WAVPath = *wavFlag
		if *sinkFlag == "" {
			cfg.Audio.Sink = audio.SinkWAV
		}
	}
	if *transportFlag != "" {
		cfg.Display.Transport = *transportFlag
	}
	if *rotationFlag >= 0 {
		if (*rotationFlag-cfg.Display.Rotation)%2 != 0 {
			cfg.Display.Width, cfg.Display.Height = cfg.Display.Height, cfg.Display.Width
		}
		cfg.Display.Rotation = *rotationFlag
	}
	if *statsFlag >= 0 {
		cfg.Emulation.StatsInterval = int(statsFlag.Seconds())
	}
	if strings.EqualFold(cfg.Emulation.Region, "auto") {
		cfg.Emulation.Region = ""
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if *writeConfig {
		if err := config.Save(path, cfg); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}
		log.Printf("wrote %s", path)
		return
	}

	if err := run(cfg, *romPath); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, romPath string) error {
	statsview.Launch()

	factory := &signalcore.Factory{}
	info := factory.SystemInfo()

	var rom []byte
	if romPath != "" {
		data, name, err := romloader.New(info.Extensions).Load(romPath)
		if err != nil {
			return fmt.Errorf("failed to load program: %w", err)
		}
		log.Printf("loaded %s (%d bytes)", name, len(data))
		rom = data
	}

	region := selectRegion(cfg.Emulation.Region, factory, rom)
	emu, err := factory.CreateEmulator(rom, region)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %w", err)
	}
	defer emu.Close()

	audioRelay, err := audio.NewRelay(cfg.Audio.Capacity, info.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to create audio relay: %w", err)
	}
	defer audioRelay.Close()

	sink, err := audio.NewSink(cfg.Audio.Sink, audio.SinkOptions{
		Device:       cfg.Audio.Device,
		PeriodFrames: cfg.Audio.PeriodFrames,
		Path:         cfg.Audio.WAVPath,
	})
	if err != nil {
		return err
	}
	volume := float64(cfg.Audio.Volume) / 100
	if cfg.Audio.Muted {
		volume = 0
	}
	sink.SetVolume(volume)
	if err := sink.Open(audioRelay, info.SampleRate); err != nil {
		return fmt.Errorf("failed to open audio sink %q: %w", cfg.Audio.Sink, err)
	}
	defer sink.Close()

	out, err := openTransport(cfg.Display)
	if err != nil {
		return err
	}
	defer out.Close()

	displayRelay, err := display.NewRelay(out.transport, info.ScreenWidth*info.MaxScreenHeight*4)
	if err != nil {
		return fmt.Errorf("failed to create display relay: %w", err)
	}
	if err := displayRelay.Start(); err != nil {
		return err
	}
	defer displayRelay.Stop()

	orch, err := orchestrator.New(emu, audioRelay, displayRelay, orchestrator.Options{
		PanelWidth:    cfg.Display.Width,
		PanelHeight:   cfg.Display.Height,
		OriginX:       cfg.Display.OriginX,
		OriginY:       cfg.Display.OriginY,
		Center:        cfg.Display.Center,
		StatsInterval: time.Duration(cfg.Emulation.StatsInterval) * time.Second,
		SkipWhenBusy:  cfg.Emulation.SkipWhenBusy,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("running %s: region %v, audio %s, display %s %dx%d",
		info.ConsoleName, region, cfg.Audio.Sink, cfg.Display.Transport, cfg.Display.Width, cfg.Display.Height)

	if out.panel == nil {
		return orch.Run(ctx)
	}

	// Ebiten owns the main goroutine; the frame loop runs beside it.
	errc := make(chan error, 1)
	go func() {
		errc <- orch.Run(ctx)
		cancel()
	}()

	keys := window.NewKeymap(info.Buttons)
	w := window.New(ctx, out.panel, keys, orch.Input())
	werr := w.Run(info.ConsoleName, cfg.Display.Scale)
	cancel()
	if err := <-errc; err != nil {
		return err
	}
	return werr
}

// selectRegion resolves the configured region, detecting it from the
// program when unset.
func selectRegion(name string, factory emucore.CoreFactory, rom []byte) emucore.Region {
	switch strings.ToLower(name) {
	case "ntsc":
		return emucore.RegionNTSC
	case "pal":
		return emucore.RegionPAL
	}
	region, _ := factory.DetectRegion(rom)
	return region
}
