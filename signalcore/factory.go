package signalcore

import emucore "github.com/user-none/eblitui/api"

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

const (
	Name    = "signalcore"
	Version = "1.0.0"
)

// Factory implements emucore.CoreFactory for the test card core.
type Factory struct{}

// SystemInfo returns system metadata.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            Name,
		ConsoleName:     "Signal Generator",
		Extensions:      []string{".z80", ".bin"},
		ScreenWidth:     ScreenWidth,
		MaxScreenHeight: ScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      SampleRate,
		Buttons: []emucore.Button{
			{Name: "1", ID: 4, DefaultKey: "J", DefaultPad: "A"},
			{Name: "2", ID: 5, DefaultKey: "K", DefaultPad: "B"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:      "mute",
				Label:    "Mute",
				Type:     emucore.CoreOptionBool,
				Default:  "false",
				Category: emucore.CoreOptionCategoryAudio,
			},
			{
				Key:      "palette",
				Label:    "Bar Palette",
				Type:     emucore.CoreOptionSelect,
				Default:  "colour",
				Values:   []string{"colour", "grey"},
				Category: emucore.CoreOptionCategoryVideo,
			},
		},
		DataDirName: Name,
		CoreName:    Name,
		CoreVersion: Version,
	}
}

// CreateEmulator creates an emulator running rom as a Z80 program. An
// empty rom runs the built-in test card.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion always reports NTSC; programs carry no region header.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emucore.RegionNTSC, false
}
