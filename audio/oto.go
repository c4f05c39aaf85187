package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays through the system audio device using oto. Oto owns the
// device thread and pulls samples through an io.Reader, so the relay is
// read directly from oto's callback context.
//
// Oto allows one context per process; a second OtoSink in the same process
// fails to open.
type OtoSink struct {
	opts   SinkOptions
	volume gain

	mu     sync.Mutex
	player *oto.Player
}

// NewOtoSink creates an unopened oto sink.
func NewOtoSink(opts SinkOptions) *OtoSink {
	s := &OtoSink{opts: opts.withDefaults()}
	s.volume.set(1.0)
	return s
}

// Open creates the oto context and starts a player reading from src.
func (s *OtoSink) Open(src Source, sampleRate int) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   periodDuration(s.opts.PeriodFrames, sampleRate),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to init oto audio: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(newPullReader(src, s.opts.PeriodFrames))
	player.SetVolume(s.volume.get())
	player.Play()

	s.mu.Lock()
	s.player = player
	s.mu.Unlock()
	return nil
}

// SetVolume sets the player volume.
func (s *OtoSink) SetVolume(volume float64) {
	s.volume.set(volume)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.SetVolume(s.volume.get())
	}
}

// Close stops the player.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}

// pullReader adapts a Source to the io.Reader oto pulls from. Each Read
// is answered in full, padded with silence when the source runs dry, so
// the device never sees a short read.
type pullReader struct {
	src     Source
	samples []int16
}

func newPullReader(src Source, frames int) *pullReader {
	return &pullReader{
		src:     src,
		samples: make([]int16, 0, frames*2),
	}
}

func (r *pullReader) Read(p []byte) (int, error) {
	// Whole stereo frames only (2 channels x 2 bytes) so left and right
	// never swap.
	n := len(p) &^ 3
	if n == 0 {
		return 0, nil
	}

	count := n / 2
	if cap(r.samples) < count {
		r.samples = make([]int16, count)
	}
	r.samples = r.samples[:count]

	r.src.Pull(r.samples)
	putSamples(p, r.samples)
	return n, nil
}
