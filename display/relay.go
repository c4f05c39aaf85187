// Package display hands rendered frames from the emulation goroutine to a
// transfer goroutine that pushes them to a panel.
//
// A panel on a serial bus accepts pixels far slower than an emulator can
// render them. Relay keeps exactly one submission in flight: Submit
// publishes a region into a single-slot mailbox and signals pending, the
// transfer goroutine runs the Transport and signals done, and the render
// side waits for done before it touches that memory again. The render side
// is therefore throttled to the bus rate and never writes a buffer that is
// being transmitted.
package display

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/user-none/eblitpi/ringbuf"
)

// Transport moves one region of pixels to the panel. Transfer is called
// from the relay's transfer goroutine only, one region at a time.
type Transport interface {
	Transfer(r Region) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(r Region) error

func (f TransportFunc) Transfer(r Region) error { return f(r) }

var (
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("display relay not started")

	// ErrStopped is returned by Start and Submit after Stop.
	ErrStopped = errors.New("display relay stopped")

	// ErrUnknownTransport is returned when a transport name is not recognised.
	ErrUnknownTransport = errors.New("unknown display transport")
)

// MaxBufferSize limits the back buffers a relay will allocate.
const MaxBufferSize = 64 << 20

// State is the lifecycle state of a Relay.
type State int32

const (
	StateNotStarted State = iota
	StateIdle
	StateTransferPending
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateIdle:
		return "idle"
	case StateTransferPending:
		return "transfer pending"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stats counts relay activity since creation.
type Stats struct {
	Submitted   uint64 // Regions accepted by Submit
	Transferred uint64 // Transport calls that returned nil
	Errors      uint64 // Transport calls that failed
	Bytes       uint64 // Pixel bytes handed to the transport
	LastError   error
}

// Relay is the render-side to transfer-goroutine hand-off.
//
// Submit, WaitDone, Busy, Acquire and Stop belong to the render side and
// must be called from one goroutine.
type Relay struct {
	transport Transport

	// pending and done are the two semaphores. Each holds at most one
	// token since at most one submission is ever outstanding.
	pending chan struct{}
	done    chan struct{}

	// Mailbox. Written by Submit before pending is signaled and read by
	// the transfer goroutine after it is received.
	mailbox Region
	queued  bool

	// Render-side only.
	outstanding bool
	back        [2][]byte
	next        int

	state    atomic.Int32
	stopping atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once

	submitted   atomic.Uint64
	transferred atomic.Uint64
	errs        atomic.Uint64
	bytes       atomic.Uint64

	mu      sync.Mutex
	lastErr error
}

// NewRelay creates a relay that sends regions to transport. When bufSize
// is positive the relay also owns two back buffers of that many bytes,
// handed out by Acquire. An error wrapping ringbuf.ErrAllocation is
// returned if the buffers cannot be allocated.
func NewRelay(transport Transport, bufSize int) (*Relay, error) {
	if transport == nil {
		return nil, errors.New("display relay: nil transport")
	}
	if bufSize < 0 || bufSize > MaxBufferSize {
		return nil, fmt.Errorf("display relay: %w: buffer size %d", ringbuf.ErrAllocation, bufSize)
	}

	r := &Relay{
		transport: transport,
		pending:   make(chan struct{}, 1),
		done:      make(chan struct{}, 1),
	}
	if bufSize > 0 {
		r.back[0] = make([]byte, bufSize)
		r.back[1] = make([]byte, bufSize)
	}
	return r, nil
}

// Start launches the transfer goroutine. Calling Start on a running relay
// does nothing.
func (r *Relay) Start() error {
	if !r.state.CompareAndSwap(int32(StateNotStarted), int32(StateIdle)) {
		if r.State() == StateStopped {
			return ErrStopped
		}
		return nil
	}

	r.wg.Add(1)
	go r.run()
	return nil
}

func (r *Relay) run() {
	defer r.wg.Done()

	for range r.pending {
		if r.queued {
			region := r.mailbox
			r.mailbox = Region{}
			r.queued = false

			r.transfer(region)

			r.state.CompareAndSwap(int32(StateTransferPending), int32(StateIdle))
			r.done <- struct{}{}
			continue
		}

		if r.stopping.Load() {
			return
		}
	}
}

func (r *Relay) transfer(region Region) {
	r.bytes.Add(uint64(region.Bytes()))

	if err := r.transport.Transfer(region); err != nil {
		r.errs.Add(1)
		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		log.Printf("warning: display transfer failed: %v", err)
		return
	}
	r.transferred.Add(1)
}

// Submit queues region for transfer and returns without waiting for it.
// If the previous submission has not been acknowledged with WaitDone,
// Submit waits for it first, so at most one region is ever in flight.
// region.Pix must not be modified until the next WaitDone or Submit
// returns.
func (r *Relay) Submit(region Region) error {
	switch r.State() {
	case StateNotStarted:
		return ErrNotStarted
	case StateStopped:
		return ErrStopped
	}
	if err := region.Validate(); err != nil {
		return err
	}

	r.WaitDone()
	if r.stopping.Load() {
		return ErrStopped
	}

	r.mailbox = region
	r.queued = true
	r.outstanding = true
	r.submitted.Add(1)
	r.state.Store(int32(StateTransferPending))
	r.pending <- struct{}{}
	return nil
}

// WaitDone blocks until the most recent submission has been transferred
// and its pixel memory may be reused. It returns at once if nothing is
// outstanding. There is no timeout: a stalled transport stalls the caller.
func (r *Relay) WaitDone() {
	if !r.outstanding {
		return
	}
	<-r.done
	r.outstanding = false
}

// Busy reports whether a submission is still in flight, acknowledging it
// if it has completed. It never blocks.
func (r *Relay) Busy() bool {
	if !r.outstanding {
		return false
	}
	select {
	case <-r.done:
		r.outstanding = false
		return false
	default:
		return true
	}
}

// Acquire returns the back buffer that is not in flight. The two buffers
// alternate, so the previous Acquire's buffer may still be transferring
// while the caller renders into this one. Acquire returns nil if the
// relay was created without back buffers.
func (r *Relay) Acquire() []byte {
	if r.back[0] == nil {
		return nil
	}
	r.next ^= 1
	return r.back[r.next]
}

// Stop finishes any queued transfer, ends the transfer goroutine and waits
// for it to exit. Stop is idempotent and safe to call while the goroutine
// is waiting for work.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		if r.state.CompareAndSwap(int32(StateNotStarted), int32(StateStopped)) {
			return
		}

		r.stopping.Store(true)
		r.pending <- struct{}{}
		r.wg.Wait()

		// The queued job, if any, was completed before exit.
		select {
		case <-r.done:
		default:
		}
		r.outstanding = false
		r.state.Store(int32(StateStopped))
	})
}

// State returns the current lifecycle state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// BufferSize returns the size of each back buffer.
func (r *Relay) BufferSize() int {
	return len(r.back[0])
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() Stats {
	r.mu.Lock()
	lastErr := r.lastErr
	r.mu.Unlock()

	return Stats{
		Submitted:   r.submitted.Load(),
		Transferred: r.transferred.Load(),
		Errors:      r.errs.Load(),
		Bytes:       r.bytes.Load(),
		LastError:   lastErr,
	}
}
