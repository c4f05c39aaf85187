// Package config loads and stores the eblitpi configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment overrides.
const (
	EnvConfigPath  = "EBLITPI_CONFIG"
	EnvAudioDevice = "EBLITPI_AUDIO_DEVICE"
)

const currentVersion = 1

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid configuration")

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Audio: AudioConfig{
			Sink:         "oto",
			Capacity:     16*1024 + 1,
			PeriodFrames: 1024,
			Volume:       100,
		},
		Display: DisplayConfig{
			Transport: "st7789",
			Width:     320,
			Height:    240,
			Rotation:  1,
			Center:    true,
			Scale:     2,
			SPI: SPIConfig{
				ClockHz: 60_000_000,
				DC:      "GPIO25",
				RST:     "GPIO27",
				BL:      "GPIO24",
			},
		},
		Emulation: EmulationConfig{
			StatsInterval: 10,
		},
	}
}

// Path returns the config file location: $EBLITPI_CONFIG when set,
// otherwise eblitpi/config.json under the user config directory.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "eblitpi", "config.json"), nil
}

// Load loads the configuration from path.
// If the file doesn't exist, it returns default configuration.
// If the file is corrupted, it returns an error.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	var config *Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		config = DefaultConfig()
	} else {
		config = &Config{}
		if err := ReadJSON(path, config); err != nil {
			return nil, err
		}
		config = migrateConfig(config)
	}

	config.ApplyEnv()
	return config, nil
}

// Save saves the configuration to path atomically
func Save(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return AtomicWriteJSON(path, config)
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if dev := os.Getenv(EnvAudioDevice); dev != "" {
		c.Audio.Device = dev
	}
}

// Validate checks settings that would otherwise fail deep inside a
// component.
func (c *Config) Validate() error {
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("%w: volume %d outside 0-100", ErrInvalid, c.Audio.Volume)
	}
	if c.Audio.Capacity < 2 {
		return fmt.Errorf("%w: audio capacity %d", ErrInvalid, c.Audio.Capacity)
	}
	if c.Display.Rotation < 0 || c.Display.Rotation > 3 {
		return fmt.Errorf("%w: rotation %d outside 0-3", ErrInvalid, c.Display.Rotation)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("%w: panel size %dx%d", ErrInvalid, c.Display.Width, c.Display.Height)
	}
	switch strings.ToLower(c.Emulation.Region) {
	case "", "ntsc", "pal":
	default:
		return fmt.Errorf("%w: region %q", ErrInvalid, c.Emulation.Region)
	}
	return nil
}

// migrateConfig handles any necessary migrations from older config versions
func migrateConfig(config *Config) *Config {
	// Currently at version 1, no migrations needed
	if config.Version == 0 {
		config.Version = currentVersion
	}

	// Ensure defaults for any missing fields
	def := DefaultConfig()
	if config.Audio.Sink == "" {
		config.Audio.Sink = def.Audio.Sink
	}
	if config.Audio.Capacity == 0 {
		config.Audio.Capacity = def.Audio.Capacity
	}
	if config.Audio.PeriodFrames == 0 {
		config.Audio.PeriodFrames = def.Audio.PeriodFrames
	}
	if config.Display.Transport == "" {
		config.Display.Transport = def.Display.Transport
	}
	if config.Display.Width == 0 || config.Display.Height == 0 {
		config.Display.Width = def.Display.Width
		config.Display.Height = def.Display.Height
	}
	if config.Display.Scale == 0 {
		config.Display.Scale = def.Display.Scale
	}
	if config.Display.SPI.ClockHz == 0 {
		config.Display.SPI.ClockHz = def.Display.SPI.ClockHz
	}
	if config.Display.SPI.DC == "" {
		config.Display.SPI.DC = def.Display.SPI.DC
	}
	if config.Display.SPI.RST == "" {
		config.Display.SPI.RST = def.Display.SPI.RST
	}

	return config
}
