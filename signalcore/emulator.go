// Package signalcore is a small emulator core that produces a test card:
// scrolling colour bars and a PSG tone, driven by a real Z80 program. It
// exercises the media path end to end on a board without a game core.
package signalcore

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Compile-time interface check.
var _ emucore.Emulator = (*Emulator)(nil)

const (
	ScreenWidth  = 256
	ScreenHeight = 192
	SampleRate   = 48000

	// MaxProgramSize leaves the top 16KB of the address space for stack
	// and data.
	MaxProgramSize = 0xC000
)

// RegionTiming holds timing constants for a specific region.
type RegionTiming struct {
	CPUClockHz int
	Scanlines  int
	FPS        int
}

// NTSC timing: 3.579545 MHz, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	CPUClockHz: 3579545,
	Scanlines:  262,
	FPS:        60,
}

// PAL timing: 3.546893 MHz, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	CPUClockHz: 3546893,
	Scanlines:  313,
	FPS:        50,
}

// TimingForRegion returns the timing constants for r.
func TimingForRegion(r emucore.Region) RegionTiming {
	if r == emucore.RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// bars are the colour bar palettes, left to right.
var bars = [2][8][3]uint8{
	{
		{0xC0, 0xC0, 0xC0}, {0xC0, 0xC0, 0x00}, {0x00, 0xC0, 0xC0}, {0x00, 0xC0, 0x00},
		{0xC0, 0x00, 0xC0}, {0xC0, 0x00, 0x00}, {0x00, 0x00, 0xC0}, {0x00, 0x00, 0x00},
	},
	{
		{0xFF, 0xFF, 0xFF}, {0xDB, 0xDB, 0xDB}, {0xB6, 0xB6, 0xB6}, {0x92, 0x92, 0x92},
		{0x6D, 0x6D, 0x6D}, {0x49, 0x49, 0x49}, {0x24, 0x24, 0x24}, {0x00, 0x00, 0x00},
	},
}

// rampHeight is the grey ramp under the bars.
const rampHeight = 16

// Emulator runs a Z80 program against the PSG and the bar generator.
type Emulator struct {
	cpu *z80.CPU
	psg *sn76489.SN76489
	bus *Bus

	region              emucore.Region
	timing              RegionTiming
	cyclesPerScanlineFP int // 16 fractional bits

	framebuffer  []byte
	frameSamples []float32
	audioBuffer  []int16
	muted        bool
}

// NewEmulator creates an emulator running program, or the built-in test
// card program when program is empty.
func NewEmulator(program []byte, region emucore.Region) (*Emulator, error) {
	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("signalcore: program is %d bytes, limit %d", len(program), MaxProgramSize)
	}
	if len(program) == 0 {
		program = builtinProgram
	}

	timing := TimingForRegion(region)
	samplesPerFrame := SampleRate / timing.FPS
	psg := sn76489.New(timing.CPUClockHz, SampleRate, samplesPerFrame*2, sn76489.Sega)
	bus := NewBus(program, psg)

	e := &Emulator{
		cpu:          z80.New(bus),
		psg:          psg,
		bus:          bus,
		framebuffer:  make([]byte, ScreenWidth*ScreenHeight*4),
		frameSamples: make([]float32, 0, 1024),
		audioBuffer:  make([]int16, 0, 2048),
	}
	e.SetRegion(region)
	return e, nil
}

// RunFrame executes one frame of CPU and PSG time and renders the bars.
func (e *Emulator) RunFrame() {
	e.frameSamples = e.frameSamples[:0]

	var targetFP, prev int
	for i := 0; i < e.timing.Scanlines; i++ {
		targetFP += e.cyclesPerScanlineFP
		target := targetFP >> 16
		budget := target - prev
		prev = target

		consumed := 0
		for consumed < budget {
			consumed += e.cpu.StepCycles(budget - consumed)
		}

		e.psg.GenerateSamples(budget)
		buffer, count := e.psg.GetBuffer()
		if count > 0 {
			e.frameSamples = append(e.frameSamples, buffer[:count]...)
		}
	}

	e.render()

	// Mono PSG output duplicated to both channels at half level.
	e.audioBuffer = e.audioBuffer[:0]
	for _, s := range e.frameSamples {
		v := int16(s * 32767 * 0.5)
		if e.muted {
			v = 0
		}
		e.audioBuffer = append(e.audioBuffer, v, v)
	}
}

func (e *Emulator) render() {
	scroll := int(e.bus.scroll)
	palette := &bars[e.bus.palette]
	stride := ScreenWidth * 4

	for x := 0; x < ScreenWidth; x++ {
		c := palette[((x+scroll)&0xFF)/(ScreenWidth/8)]
		for y := 0; y < ScreenHeight-rampHeight; y++ {
			p := e.framebuffer[y*stride+x*4:]
			p[0], p[1], p[2], p[3] = c[0], c[1], c[2], 0xFF
		}

		grey := uint8(x)
		for y := ScreenHeight - rampHeight; y < ScreenHeight; y++ {
			p := e.framebuffer[y*stride+x*4:]
			p[0], p[1], p[2], p[3] = grey, grey, grey, 0xFF
		}
	}
}

// GetFramebuffer returns the RGBA frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.framebuffer
}

// GetFramebufferStride returns bytes per row.
func (e *Emulator) GetFramebufferStride() int {
	return ScreenWidth * 4
}

// GetActiveHeight returns the frame height.
func (e *Emulator) GetActiveHeight() int {
	return ScreenHeight
}

// GetAudioSamples returns the frame's 16-bit stereo samples.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// SetInput latches player 1 buttons for the input port.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player == 0 {
		e.bus.buttons = buttons
	}
}

func (e *Emulator) GetRegion() emucore.Region {
	return e.region
}

// SetRegion switches the CPU clock and frame timing.
func (e *Emulator) SetRegion(region emucore.Region) {
	e.region = region
	e.timing = TimingForRegion(region)
	e.cyclesPerScanlineFP = (e.timing.CPUClockHz * 65536) / e.timing.FPS / e.timing.Scanlines
}

func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "mute":
		e.muted = value == "true"
	case "palette":
		if value == "grey" {
			e.bus.palette = 1
		} else {
			e.bus.palette = 0
		}
	}
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}
