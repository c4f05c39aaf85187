package audio

import "sync"

// NullSink drains the relay at the device period and discards the samples.
// It keeps the relay moving on boards with no audio output so the producer
// side sees the same steady state it would with a real device.
type NullSink struct {
	opts   SinkOptions
	volume gain

	mu   sync.Mutex
	pump *pump
}

// NewNullSink creates an unopened null sink.
func NewNullSink(opts SinkOptions) *NullSink {
	s := &NullSink{opts: opts.withDefaults()}
	s.volume.set(1.0)
	return s
}

func (s *NullSink) Open(src Source, sampleRate int) error {
	p := newPump(src, s.opts.PeriodFrames, sampleRate, &s.volume, func([]int16) error {
		return nil
	})

	s.mu.Lock()
	s.pump = p
	s.mu.Unlock()

	p.start()
	return nil
}

func (s *NullSink) SetVolume(volume float64) {
	s.volume.set(volume)
}

func (s *NullSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pump != nil {
		s.pump.stop()
		s.pump = nil
	}
	return nil
}
