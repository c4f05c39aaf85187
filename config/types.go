package config

// Config represents the application configuration stored in config.json
type Config struct {
	Version   int             `json:"version"`
	Audio     AudioConfig     `json:"audio"`
	Display   DisplayConfig   `json:"display"`
	Emulation EmulationConfig `json:"emulation"`
}

// AudioConfig contains audio-related settings
type AudioConfig struct {
	Sink         string `json:"sink"`         // "oto", "sdl", "wav", "none"
	Device       string `json:"device"`       // empty = system default
	Capacity     int    `json:"capacity"`     // relay capacity in samples
	PeriodFrames int    `json:"periodFrames"` // device period in stereo frames
	Volume       int    `json:"volume"`       // 0-100
	Muted        bool   `json:"muted"`
	WAVPath      string `json:"wavPath,omitempty"`
}

// DisplayConfig contains panel and transport settings
type DisplayConfig struct {
	Transport string    `json:"transport"` // "st7789", "window", "memory"
	Width     int       `json:"width"`     // panel width after rotation
	Height    int       `json:"height"`
	Rotation  int       `json:"rotation"` // 0-3
	Center    bool      `json:"center"`
	OriginX   int       `json:"originX"`
	OriginY   int       `json:"originY"`
	Scale     int       `json:"scale"` // window transport only
	SPI       SPIConfig `json:"spi"`
}

// SPIConfig names the bus and pins the ST7789 panel is wired to
type SPIConfig struct {
	Port    string `json:"port"`    // empty = first SPI port
	ClockHz int64  `json:"clockHz"` // bus clock
	DC      string `json:"dc"`
	RST     string `json:"rst"`
	CS      string `json:"cs,omitempty"` // empty = hardware chip select
	BL      string `json:"bl,omitempty"` // empty = no backlight control
}

// EmulationConfig contains core and frame loop settings
type EmulationConfig struct {
	Region        string `json:"region"`        // "ntsc", "pal", "" = auto
	StatsInterval int    `json:"statsInterval"` // seconds, 0 = off
	SkipWhenBusy  bool   `json:"skipWhenBusy"`
}
