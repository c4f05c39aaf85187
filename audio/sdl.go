package audio

import (
	"fmt"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

// SDLSink plays through an SDL queued audio device. SDL is fed from a
// playback goroutine that runs at the device period and tops the queue up
// to two periods, so latency stays bounded even if the tick drifts against
// the device clock.
type SDLSink struct {
	opts   SinkOptions
	volume gain

	mu    sync.Mutex
	id    sdl.AudioDeviceID
	pump  *pump
	bytes []byte
}

// NewSDLSink creates an unopened SDL sink.
func NewSDLSink(opts SinkOptions) *SDLSink {
	s := &SDLSink{opts: opts.withDefaults()}
	s.volume.set(1.0)
	return s
}

// Open opens the configured device (or the default one) and starts the
// playback goroutine.
func (s *SDLSink) Open(src Source, sampleRate int) error {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("failed to init SDL audio: %w", err)
	}

	spec := &sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  uint16(s.opts.PeriodFrames),
	}
	var obtained sdl.AudioSpec

	id, err := sdl.OpenAudioDevice(s.opts.Device, false, spec, &obtained, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		if s.opts.Device != "" {
			return fmt.Errorf("failed to open audio device %q: %w", s.opts.Device, err)
		}
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	periodBytes := uint32(s.opts.PeriodFrames * 4)
	s.bytes = make([]byte, periodBytes)

	p := newPump(src, s.opts.PeriodFrames, sampleRate, &s.volume, func(samples []int16) error {
		putSamples(s.bytes, samples)
		return sdl.QueueAudio(id, s.bytes)
	})
	p.wants = func() bool {
		return sdl.GetQueuedAudioSize(id) < 2*periodBytes
	}

	s.mu.Lock()
	s.id = id
	s.pump = p
	s.mu.Unlock()

	sdl.PauseAudioDevice(id, false)
	p.start()
	return nil
}

// SetVolume sets the gain applied before samples are queued.
func (s *SDLSink) SetVolume(volume float64) {
	s.volume.set(volume)
}

// Close stops the playback goroutine and closes the device.
func (s *SDLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pump == nil {
		return nil
	}

	s.pump.stop()
	s.pump = nil
	sdl.CloseAudioDevice(s.id)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}
