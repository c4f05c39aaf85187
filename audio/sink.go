package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// Source is the consumer side of a Relay as seen by an output device.
type Source interface {
	// Pull fills dst and returns the number of real (non-silence) samples.
	Pull(dst []int16) int
}

// Sink is an audio output device that pulls from a Source on its own clock.
type Sink interface {
	// Open starts playback, pulling interleaved stereo samples from src.
	Open(src Source, sampleRate int) error

	// SetVolume sets the output gain in the range 0.0 to 1.0.
	SetVolume(volume float64)

	// Close stops playback and releases the device.
	Close() error
}

// Sink names accepted by NewSink.
const (
	SinkOto  = "oto"
	SinkSDL  = "sdl"
	SinkWAV  = "wav"
	SinkNull = "null"
)

// ErrUnknownSink is returned by NewSink for an unrecognised sink name.
var ErrUnknownSink = errors.New("unknown audio sink")

// SinkOptions configures the sink returned by NewSink.
type SinkOptions struct {
	// Device names the output device. Empty selects the system default.
	Device string

	// PeriodFrames is the number of stereo frames the device consumes per
	// period. Zero selects DefaultPeriodFrames.
	PeriodFrames int

	// Path is the output file for the wav sink.
	Path string
}

// DefaultPeriodFrames is the device period used when none is configured,
// about 21ms at 48kHz.
const DefaultPeriodFrames = 1024

// NewSink creates an unopened sink by name.
func NewSink(name string, opts SinkOptions) (Sink, error) {
	opts = opts.withDefaults()

	switch strings.ToLower(name) {
	case SinkOto:
		return NewOtoSink(opts), nil
	case SinkSDL:
		return NewSDLSink(opts), nil
	case SinkWAV:
		if opts.Path == "" {
			return nil, fmt.Errorf("wav sink: no output path")
		}
		return NewWAVSink(opts), nil
	case SinkNull, "none", "":
		return NewNullSink(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
}

func (o SinkOptions) withDefaults() SinkOptions {
	if o.PeriodFrames <= 0 {
		o.PeriodFrames = DefaultPeriodFrames
	}
	return o
}

// periodDuration returns the wall-clock length of one device period.
func periodDuration(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// gain is a volume shared between the caller of SetVolume and the device
// goroutine without a lock.
type gain struct {
	bits atomic.Uint64
}

func (g *gain) set(v float64) {
	g.bits.Store(math.Float64bits(clampVolume(v)))
}

func (g *gain) get() float64 {
	return math.Float64frombits(g.bits.Load())
}

// scale applies volume to samples in place. Volume 1.0 leaves them alone.
func scale(samples []int16, volume float64) {
	if volume >= 1.0 {
		return
	}
	if volume <= 0 {
		clear(samples)
		return
	}
	for i, s := range samples {
		samples[i] = int16(float64(s) * volume)
	}
}

// clampVolume limits v to 0.0..1.0.
func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// putSamples converts int16 samples to little-endian bytes in dst, which
// must hold 2*len(samples) bytes.
func putSamples(dst []byte, samples []int16) {
	for i, s := range samples {
		dst[2*i] = byte(s)
		dst[2*i+1] = byte(s >> 8)
	}
}
