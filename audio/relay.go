// Package audio hands emulator audio from the emulation goroutine to an
// output device that pulls samples on its own clock.
//
// The emulator pushes a burst of interleaved 16-bit stereo samples once per
// video frame. The device side pulls a fixed number of samples per period
// from a callback or playback goroutine. Relay sits between the two and
// never blocks either side: a push that finds the buffer full drops the
// newest samples, and a pull that finds it empty is padded with silence.
package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/user-none/eblitpi/ringbuf"
)

// DefaultCapacity is the ring size used when none is configured. One slot is
// reserved by the ring, so 16K+1 keeps the usable space a whole number of
// stereo frames and pushes/pulls of even length never split a frame.
const DefaultCapacity = 16*1024 + 1

// State is the lifecycle state of a Relay.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stats counts overruns and underruns since the relay was created.
type Stats struct {
	Pushed     uint64 // Samples accepted by Push
	Pulled     uint64 // Real samples returned by Pull
	Overruns   uint64 // Push calls that dropped samples
	Dropped    uint64 // Samples dropped by those calls
	Underruns  uint64 // Pull calls that were padded with silence
	Padded     uint64 // Silence samples written by those calls
	Available  int    // Samples buffered when Stats was called
	Capacity   int    // Ring capacity (usable space is Capacity-1)
	SampleRate int
}

// Relay is a single-producer/single-consumer audio FIFO.
//
// Push must only be called from one goroutine (the emulation side) and
// Pull from one other goroutine (the device side). The zero value is an
// uninitialized relay on which both report zero transferred.
type Relay struct {
	ring       *ringbuf.Ring[int16]
	sampleRate int
	state      atomic.Int32

	pushed    atomic.Uint64
	pulled    atomic.Uint64
	overruns  atomic.Uint64
	dropped   atomic.Uint64
	underruns atomic.Uint64
	padded    atomic.Uint64
}

// NewRelay creates a ready relay holding up to capacity-1 samples at the
// given sample rate. The rate is informational; the relay never resamples.
// An error wrapping ringbuf.ErrAllocation is returned if the buffer cannot
// be allocated.
func NewRelay(capacity, sampleRate int) (*Relay, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio relay: invalid sample rate %d", sampleRate)
	}
	ring, err := ringbuf.New[int16](capacity)
	if err != nil {
		return nil, fmt.Errorf("audio relay: %w", err)
	}
	r := &Relay{
		ring:       ring,
		sampleRate: sampleRate,
	}
	r.state.Store(int32(StateReady))
	return r, nil
}

// Push queues samples and returns how many were accepted. Samples are
// accepted in order until the buffer is full; the remainder of the call is
// dropped. Push never blocks.
func (r *Relay) Push(samples []int16) int {
	if r.State() != StateReady || len(samples) == 0 {
		return 0
	}

	accepted := r.ring.Write(samples)
	r.pushed.Add(uint64(accepted))
	if accepted < len(samples) {
		r.overruns.Add(1)
		r.dropped.Add(uint64(len(samples) - accepted))
	}
	return accepted
}

// Pull fills dst completely and returns how many of its samples came from
// the buffer. Anything beyond that count is silence. Pull never blocks.
func (r *Relay) Pull(dst []int16) int {
	if r.State() != StateReady {
		clear(dst)
		return 0
	}

	filled := r.ring.Read(dst)
	if filled < len(dst) {
		clear(dst[filled:])
		r.underruns.Add(1)
		r.padded.Add(uint64(len(dst) - filled))
	}
	r.pulled.Add(uint64(filled))
	return filled
}

// Available returns the number of buffered samples.
func (r *Relay) Available() int {
	if r.ring == nil {
		return 0
	}
	return r.ring.Available()
}

// Capacity returns the ring capacity. One slot is always unused.
func (r *Relay) Capacity() int {
	if r.ring == nil {
		return 0
	}
	return r.ring.Cap()
}

// SampleRate returns the rate the relay was created with.
func (r *Relay) SampleRate() int {
	return r.sampleRate
}

// State returns the current lifecycle state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Close moves the relay to the closed state. Later pushes and pulls report
// zero transferred. Close is idempotent.
func (r *Relay) Close() {
	r.state.CompareAndSwap(int32(StateReady), int32(StateClosed))
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Pushed:     r.pushed.Load(),
		Pulled:     r.pulled.Load(),
		Overruns:   r.overruns.Load(),
		Dropped:    r.dropped.Load(),
		Underruns:  r.underruns.Load(),
		Padded:     r.padded.Load(),
		Available:  r.Available(),
		Capacity:   r.Capacity(),
		SampleRate: r.sampleRate,
	}
}
