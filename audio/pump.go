package audio

import (
	"log"
	"sync"
	"time"
)

// pump is the playback goroutine for sinks without a pull callback of their
// own. On every tick of the device period it pulls one period of samples
// from the source and hands them to write.
type pump struct {
	src    Source
	frames int
	period time.Duration
	volume *gain

	// write delivers one period of interleaved samples to the device.
	write func(samples []int16) error

	// wants reports whether the device can take another period. A nil
	// wants always accepts.
	wants func() bool

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newPump(src Source, frames, sampleRate int, volume *gain, write func([]int16) error) *pump {
	if frames <= 0 {
		frames = DefaultPeriodFrames
	}
	return &pump{
		src:    src,
		frames: frames,
		period: periodDuration(frames, sampleRate),
		volume: volume,
		write:  write,
		quit:   make(chan struct{}),
	}
}

func (p *pump) start() {
	p.wg.Add(1)
	go p.run()
}

func (p *pump) run() {
	defer p.wg.Done()

	buf := make([]int16, p.frames*2)
	tick := time.NewTicker(p.period)
	defer tick.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-tick.C:
		}

		if p.wants != nil && !p.wants() {
			continue
		}

		p.src.Pull(buf)
		scale(buf, p.volume.get())
		if err := p.write(buf); err != nil {
			log.Printf("warning: failed to queue audio: %v", err)
		}
	}
}

// stop ends the playback goroutine and waits for it. Safe to call more than
// once.
func (p *pump) stop() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
