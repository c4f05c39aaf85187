// Package orchestrator runs an emulator core and feeds its output into the
// audio and display relays. It is the only part of the system that knows
// about the engine and both relays.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/eblitpi/audio"
	"github.com/user-none/eblitpi/display"
)

// Options control where frames land on the panel and how the loop paces
// and reports itself.
type Options struct {
	// Panel size in pixels. Frames larger than the panel are clipped.
	PanelWidth  int
	PanelHeight int

	// Origin of the frame on the panel, used when Center is false.
	OriginX int
	OriginY int
	Center  bool

	// StatsInterval is how often relay statistics are logged. Zero
	// disables the report.
	StatsInterval time.Duration

	// SkipWhenBusy drops a video frame instead of waiting when the
	// previous transfer is still in flight.
	SkipWhenBusy bool
}

// Stats counts frames seen by the orchestrator.
type Stats struct {
	Frames  uint64 // Frames emulated
	Shown   uint64 // Frames submitted to the display relay
	Skipped uint64 // Frames dropped because the display was busy
	Samples uint64 // Audio samples produced by the engine
}

// Orchestrator drives one emulator.
type Orchestrator struct {
	emu     emucore.Emulator
	audio   *audio.Relay
	display *display.Relay
	opts    Options

	control *Control
	input   SharedInput

	frames  atomic.Uint64
	shown   atomic.Uint64
	skipped atomic.Uint64
	samples atomic.Uint64

	// Last reported relay counters, for the delta in the stats line.
	lastAudio audio.Stats
}

// New creates an orchestrator. The relays are owned by the caller; the
// display relay must already be started.
func New(emu emucore.Emulator, audioRelay *audio.Relay, displayRelay *display.Relay, opts Options) (*Orchestrator, error) {
	if emu == nil {
		return nil, errors.New("orchestrator: nil emulator")
	}
	if audioRelay == nil || displayRelay == nil {
		return nil, errors.New("orchestrator: nil relay")
	}
	if opts.PanelWidth <= 0 || opts.PanelHeight <= 0 {
		return nil, fmt.Errorf("orchestrator: invalid panel size %dx%d", opts.PanelWidth, opts.PanelHeight)
	}
	return &Orchestrator{
		emu:     emu,
		audio:   audioRelay,
		display: displayRelay,
		opts:    opts,
		control: NewControl(),
	}, nil
}

// Control returns the pause/resume/stop control for the emulation loop.
func (o *Orchestrator) Control() *Control {
	return o.control
}

// Input returns the shared controller state forwarded to the engine each
// frame.
func (o *Orchestrator) Input() *SharedInput {
	return &o.input
}

// Run emulates frames at the engine's frame rate until ctx is done or the
// control is stopped. Only a display relay failure ends Run with an error.
func (o *Orchestrator) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, o.control.Stop)
	defer stop()

	fps := o.emu.GetTiming().FPS
	if fps <= 0 {
		fps = 60
	}
	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()

	var statsC <-chan time.Time
	if o.opts.StatsInterval > 0 {
		st := time.NewTicker(o.opts.StatsInterval)
		defer st.Stop()
		statsC = st.C
	}

	for {
		if !o.control.CheckPause() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-statsC:
			o.logStats()
			continue
		case <-frame.C:
		}

		if err := o.Step(); err != nil {
			return err
		}
	}
}

// Step emulates one frame and hands its audio and video to the relays.
func (o *Orchestrator) Step() error {
	buttons := o.input.Read()
	for p, b := range buttons {
		o.emu.SetInput(p, b)
	}

	o.emu.RunFrame()
	o.frames.Add(1)

	samples := o.emu.GetAudioSamples()
	o.samples.Add(uint64(len(samples)))
	o.audio.Push(samples)

	return o.present()
}

// present copies the engine framebuffer into a display back buffer and
// submits it. Without back buffers large enough for the frame, the engine
// framebuffer is submitted directly and the transfer is awaited before the
// next frame overwrites it.
func (o *Orchestrator) present() error {
	fb := o.emu.GetFramebuffer()
	stride := o.emu.GetFramebufferStride()
	height := o.emu.GetActiveHeight()
	size := stride * height
	if stride <= 0 || height <= 0 || len(fb) < size {
		return nil
	}

	if o.opts.SkipWhenBusy && o.display.Busy() {
		o.skipped.Add(1)
		return nil
	}

	pix := fb[:size]
	direct := true
	if o.display.BufferSize() >= size {
		buf := o.display.Acquire()
		copy(buf, pix)
		pix = buf[:size]
		direct = false
	}

	region, ok := o.place(stride/4, height, stride, pix)
	if !ok {
		return nil
	}
	if err := o.display.Submit(region); err != nil {
		return fmt.Errorf("orchestrator: submit frame: %w", err)
	}
	o.shown.Add(1)

	if direct {
		o.display.WaitDone()
	}
	return nil
}

// place positions a frame on the panel and clips it to the panel edges.
func (o *Orchestrator) place(w, h, stride int, pix []byte) (display.Region, bool) {
	x, y := o.opts.OriginX, o.opts.OriginY
	if o.opts.Center {
		x = max((o.opts.PanelWidth-w)/2, 0)
		y = max((o.opts.PanelHeight-h)/2, 0)
	}
	w = min(w, o.opts.PanelWidth-x)
	h = min(h, o.opts.PanelHeight-y)
	if w <= 0 || h <= 0 || x < 0 || y < 0 {
		return display.Region{}, false
	}

	return display.Region{
		X:      x,
		Y:      y,
		W:      w,
		H:      h,
		Stride: stride,
		Format: display.FormatRGBA,
		Pix:    pix,
	}, true
}

// Stats returns a snapshot of the frame counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Frames:  o.frames.Load(),
		Shown:   o.shown.Load(),
		Skipped: o.skipped.Load(),
		Samples: o.samples.Load(),
	}
}

func (o *Orchestrator) logStats() {
	st := o.Stats()
	as := o.audio.Stats()
	ds := o.display.Stats()

	log.Printf("stats: frames=%d shown=%d skipped=%d audio=%d/%d overruns=%d underruns=%d transfers=%d errors=%d",
		st.Frames, st.Shown, st.Skipped,
		as.Available, as.Capacity-1, as.Overruns, as.Underruns,
		ds.Transferred, ds.Errors)

	if d := as.Dropped - o.lastAudio.Dropped; d > 0 {
		log.Printf("warning: audio overrun: %d samples dropped", d)
	}
	if p := as.Padded - o.lastAudio.Padded; p > 0 {
		log.Printf("warning: audio underrun: %d samples of silence", p)
	}
	o.lastAudio = as
}
