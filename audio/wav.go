package audio

import (
	"fmt"
	"log"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSink records the pulled stream to a 16-bit stereo WAV file. It pulls
// in real time at the device period, like a sound card would, which makes
// it usable as a stand-in device on boards without audio output.
type WAVSink struct {
	opts   SinkOptions
	volume gain

	mu   sync.Mutex
	file *os.File
	enc  *wav.Encoder
	pump *pump
	buf  *goaudio.IntBuffer
}

// NewWAVSink creates an unopened WAV sink writing to opts.Path.
func NewWAVSink(opts SinkOptions) *WAVSink {
	s := &WAVSink{opts: opts.withDefaults()}
	s.volume.set(1.0)
	return s
}

// Open creates the output file and starts recording.
func (s *WAVSink) Open(src Source, sampleRate int) error {
	f, err := os.Create(s.opts.Path)
	if err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}

	// audio format 1 is uncompressed PCM
	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, s.opts.PeriodFrames*2),
		SourceBitDepth: 16,
	}

	p := newPump(src, s.opts.PeriodFrames, sampleRate, &s.volume, func(samples []int16) error {
		for i, v := range samples {
			buf.Data[i] = int(v)
		}
		return enc.Write(buf)
	})

	s.mu.Lock()
	s.file = f
	s.enc = enc
	s.buf = buf
	s.pump = p
	s.mu.Unlock()

	log.Printf("recording audio to %s", s.opts.Path)
	p.start()
	return nil
}

// SetVolume sets the gain applied before samples are recorded.
func (s *WAVSink) SetVolume(volume float64) {
	s.volume.set(volume)
}

// Close stops recording, finalises the WAV header and closes the file.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pump == nil {
		return nil
	}

	s.pump.stop()
	s.pump = nil

	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("wav sink: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("wav sink: %w", fileErr)
	}
	return nil
}
