package audio

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/user-none/eblitpi/ringbuf"
)

func newTestRelay(t *testing.T, capacity int) *Relay {
	t.Helper()
	r, err := NewRelay(capacity, 48000)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	return r
}

// TestRelay_PushPullScenario tests the capacity-8 overrun then underrun round trip
func TestRelay_PushPullScenario(t *testing.T) {
	r := newTestRelay(t, 8)

	accepted := r.Push([]int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if accepted != 7 {
		t.Fatalf("expected 7 accepted, got %d", accepted)
	}

	dst := make([]int16, 10)
	for i := range dst {
		dst[i] = -1
	}
	filled := r.Pull(dst)
	if filled != 7 {
		t.Fatalf("expected 7 filled, got %d", filled)
	}

	want := []int16{1, 2, 3, 4, 5, 6, 7, 0, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d]: expected %d, got %d (dst=%v)", i, want[i], dst[i], dst)
		}
	}

	st := r.Stats()
	if st.Overruns != 1 || st.Dropped != 3 {
		t.Errorf("expected 1 overrun dropping 3, got %d dropping %d", st.Overruns, st.Dropped)
	}
	if st.Underruns != 1 || st.Padded != 3 {
		t.Errorf("expected 1 underrun padding 3, got %d padding %d", st.Underruns, st.Padded)
	}
	if st.Pushed != 7 || st.Pulled != 7 {
		t.Errorf("expected 7 pushed and pulled, got %d and %d", st.Pushed, st.Pulled)
	}
}

// TestRelay_CapacityBoundary tests that N-1 samples fit and N samples drop exactly one
func TestRelay_CapacityBoundary(t *testing.T) {
	const n = 16

	r := newTestRelay(t, n)
	if got := r.Push(make([]int16, n-1)); got != n-1 {
		t.Fatalf("pushing N-1: expected %d accepted, got %d", n-1, got)
	}
	if r.Available() != n-1 {
		t.Fatalf("expected %d available, got %d", n-1, r.Available())
	}

	r = newTestRelay(t, n)
	if got := r.Push(make([]int16, n)); got != n-1 {
		t.Fatalf("pushing N: expected %d accepted, got %d", n-1, got)
	}
	if st := r.Stats(); st.Dropped != 1 {
		t.Fatalf("pushing N: expected 1 dropped, got %d", st.Dropped)
	}
}

// TestRelay_EmptyPullIsIdempotent tests that pulling from an empty relay only yields silence
func TestRelay_EmptyPullIsIdempotent(t *testing.T) {
	r := newTestRelay(t, 32)
	dst := make([]int16, 8)

	for i := 0; i < 5; i++ {
		for j := range dst {
			dst[j] = 123
		}
		if got := r.Pull(dst); got != 0 {
			t.Fatalf("pull %d: expected 0 filled, got %d", i, got)
		}
		for j, v := range dst {
			if v != 0 {
				t.Fatalf("pull %d: dst[%d] = %d, expected silence", i, j, v)
			}
		}
		if r.Available() != 0 {
			t.Fatalf("pull %d: available changed to %d", i, r.Available())
		}
	}
}

// TestRelay_ConservationAndOrder tests that real samples are conserved and delivered in push order
func TestRelay_ConservationAndOrder(t *testing.T) {
	r := newTestRelay(t, 64)
	rng := rand.New(rand.NewSource(1))

	var next int16
	var expect int16
	var accepted, real int

	for i := 0; i < 10000; i++ {
		if rng.Intn(2) == 0 {
			batch := make([]int16, rng.Intn(40))
			for j := range batch {
				batch[j] = next + int16(j)
			}
			n := r.Push(batch)
			// Only the accepted prefix was queued, so the sequence resumes there.
			next += int16(n)
			accepted += n
		} else {
			dst := make([]int16, rng.Intn(40))
			n := r.Pull(dst)
			for j := 0; j < n; j++ {
				if dst[j] != expect {
					t.Fatalf("iteration %d: expected sample %d, got %d", i, expect, dst[j])
				}
				expect++
			}
			for j := n; j < len(dst); j++ {
				if dst[j] != 0 {
					t.Fatalf("iteration %d: padding at %d is %d", i, j, dst[j])
				}
			}
			real += n
		}
	}

	real += r.Available()
	if real != accepted {
		t.Fatalf("expected %d real samples (pulled + buffered), got %d", accepted, real)
	}
}

// TestRelay_ConcurrentProducerConsumer tests the relay under a real producer and consumer goroutine
func TestRelay_ConcurrentProducerConsumer(t *testing.T) {
	const total = 1000000
	const n = 1024

	r := newTestRelay(t, n)

	var abort atomic.Bool
	var failure atomic.Value
	fail := func(msg string) {
		failure.CompareAndSwap(nil, msg)
		abort.Store(true)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(2))
		buf := make([]int16, 128)
		sent := 0
		for sent < total && !abort.Load() {
			size := rng.Intn(len(buf)) + 1
			if size > total-sent {
				size = total - sent
			}
			for j := 0; j < size; j++ {
				buf[j] = int16(sent + j)
			}
			sent += r.Push(buf[:size])
		}
	}()

	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(3))
		buf := make([]int16, 128)
		got := 0
		for got < total && !abort.Load() {
			size := rng.Intn(len(buf)) + 1
			filled := r.Pull(buf[:size])
			for j := 0; j < filled; j++ {
				if buf[j] != int16(got+j) {
					fail("samples out of order")
					return
				}
			}
			got += filled

			avail := r.Available()
			if avail < 0 || avail > n-1 {
				fail("available out of bounds")
				return
			}
		}
	}()

	wg.Wait()
	if msg := failure.Load(); msg != nil {
		t.Fatal(msg)
	}
	if r.Available() != 0 {
		t.Fatalf("expected drained relay, got %d available", r.Available())
	}
}

// TestRelay_Closed tests that push and pull report zero after Close
func TestRelay_Closed(t *testing.T) {
	r := newTestRelay(t, 16)
	r.Push([]int16{1, 2, 3, 4})
	r.Close()
	r.Close()

	if r.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", r.State())
	}
	if got := r.Push([]int16{5, 6}); got != 0 {
		t.Errorf("push on closed relay accepted %d", got)
	}

	dst := []int16{9, 9, 9}
	if got := r.Pull(dst); got != 0 {
		t.Errorf("pull on closed relay filled %d", got)
	}
	for i, v := range dst {
		if v != 0 {
			t.Errorf("dst[%d] = %d, expected silence", i, v)
		}
	}
}

// TestRelay_ZeroValue tests that an uninitialized relay is inert
func TestRelay_ZeroValue(t *testing.T) {
	var r Relay

	if r.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %v", r.State())
	}
	if got := r.Push([]int16{1}); got != 0 {
		t.Errorf("push accepted %d", got)
	}
	dst := []int16{7, 7}
	if got := r.Pull(dst); got != 0 || dst[0] != 0 || dst[1] != 0 {
		t.Errorf("pull: expected 0 and silence, got %d %v", got, dst)
	}
	if r.Available() != 0 || r.Capacity() != 0 {
		t.Errorf("expected zero available and capacity")
	}
}

// TestNewRelay_Errors tests construction failures
func TestNewRelay_Errors(t *testing.T) {
	if _, err := NewRelay(1, 48000); !errors.Is(err, ringbuf.ErrAllocation) {
		t.Errorf("capacity 1: expected ErrAllocation, got %v", err)
	}
	if _, err := NewRelay(ringbuf.MaxCapacity+1, 48000); !errors.Is(err, ringbuf.ErrAllocation) {
		t.Errorf("oversized: expected ErrAllocation, got %v", err)
	}
	if _, err := NewRelay(16, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

// TestRelay_DefaultCapacityKeepsFramesAligned tests that a full default relay holds whole stereo frames
func TestRelay_DefaultCapacityKeepsFramesAligned(t *testing.T) {
	r := newTestRelay(t, DefaultCapacity)

	frame := make([]int16, 2*800)
	for r.Push(frame) == len(frame) {
	}
	if r.Available()%2 != 0 {
		t.Fatalf("full relay holds %d samples, not whole frames", r.Available())
	}
}
