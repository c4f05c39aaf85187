// Package ringbuf provides a fixed-capacity circular buffer for one producer
// goroutine and one consumer goroutine.
//
// One slot of the backing storage is always left unused so that the empty
// and full states can be told apart from the two indices alone: the buffer
// is empty when head == tail and full when head+1 == tail (mod capacity).
// The producer is the only writer of head and the consumer is the only
// writer of tail, so neither side needs a lock.
//
// head and tail are kept as free-running counters and reduced modulo the
// capacity when indexing. Their difference is the fill level.
package ringbuf

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MaxCapacity is the largest capacity New will allocate (16M elements).
const MaxCapacity = 1 << 24

// ErrAllocation is returned when backing storage for a buffer cannot be
// obtained.
var ErrAllocation = errors.New("ringbuf: cannot allocate backing storage")

// Ring is a single-producer/single-consumer circular buffer.
//
// WriteOne, Write and Free may only be called from the producer goroutine.
// ReadOne and Read may only be called from the consumer goroutine.
// Available and Cap are safe from either side.
type Ring[T any] struct {
	// head and tail live on separate cache lines so the producer and
	// consumer don't invalidate each other on every publish.
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte

	buf []T
	n   uint64
}

// New allocates a buffer with room for capacity elements, of which
// capacity-1 are usable.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 2 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d (want 2..%d)", ErrAllocation, capacity, MaxCapacity)
	}
	return &Ring[T]{
		buf: make([]T, capacity),
		n:   uint64(capacity),
	}, nil
}

// Cap returns the number of slots in the backing storage.
func (r *Ring[T]) Cap() int {
	return int(r.n)
}

// WriteOne inserts v. It returns false without changing anything when the
// buffer is full.
func (r *Ring[T]) WriteOne(v T) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= r.n-1 {
		return false
	}
	r.buf[head%r.n] = v
	r.head.Store(head + 1)
	return true
}

// ReadOne removes the oldest element. It returns the zero value and false
// when the buffer is empty.
func (r *Ring[T]) ReadOne() (T, bool) {
	var zero T
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return zero, false
	}
	v := r.buf[tail%r.n]
	r.tail.Store(tail + 1)
	return v, true
}

// Write inserts as many leading elements of p as fit and returns how many
// were written. Elements are taken in order; writing stops at the first one
// that does not fit. head is published once, after all copies.
func (r *Ring[T]) Write(p []T) int {
	head := r.head.Load()
	tail := r.tail.Load()

	free := r.free(head, tail)
	count := uint64(len(p))
	if count > free {
		count = free
	}
	if count == 0 {
		return 0
	}

	pos := head % r.n
	first := r.n - pos
	if first >= count {
		copy(r.buf[pos:pos+count], p[:count])
	} else {
		copy(r.buf[pos:], p[:first])
		copy(r.buf[:count-first], p[first:count])
	}

	r.head.Store(head + count)
	return int(count)
}

// Read copies up to len(p) of the oldest elements into p and returns how
// many were copied. Elements of p beyond the returned count are untouched.
func (r *Ring[T]) Read(p []T) int {
	tail := r.tail.Load()
	head := r.head.Load()

	count := uint64(len(p))
	if avail := head - tail; count > avail {
		count = avail
	}
	if count == 0 {
		return 0
	}

	pos := tail % r.n
	first := r.n - pos
	if first >= count {
		copy(p[:count], r.buf[pos:pos+count])
	} else {
		copy(p[:first], r.buf[pos:])
		copy(p[first:count], r.buf[:count-first])
	}

	r.tail.Store(tail + count)
	return int(count)
}

// Available returns the number of readable elements. Called from the
// producer or consumer it is exact; from any other goroutine it is a
// snapshot that never exceeds Cap()-1.
func (r *Ring[T]) Available() int {
	// tail first: head can only move further ahead of it.
	tail := r.tail.Load()
	head := r.head.Load()
	if d := head - tail; d < r.n {
		return int(d)
	}
	return int(r.n - 1)
}

// Free returns the number of elements that can be written before the
// buffer is full.
func (r *Ring[T]) Free() int {
	return int(r.free(r.head.Load(), r.tail.Load()))
}

// Reset empties the buffer. Neither the producer nor the consumer may be
// active while it runs.
func (r *Ring[T]) Reset() {
	r.head.Store(0)
	r.tail.Store(0)
}

func (r *Ring[T]) free(head, tail uint64) uint64 {
	return r.n - 1 - (head - tail)
}
