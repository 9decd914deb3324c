// Package ring implements the lock-free single-producer/single-consumer
// sample queue that carries audio from the realtime capture callback to
// the non-realtime writer thread.
package ring

import "sync/atomic"

// Buffer is a fixed-capacity sample queue with exactly one producer and
// exactly one consumer. Head and tail are monotonically increasing
// counters taken modulo Capacity; WriteAvailable()+ReadAvailable() always
// equals Capacity. Push is the only producer-side call and never blocks,
// allocates, or touches the tail except to read it.
type Buffer struct {
	data []float32
	cap  uint64

	// head is advanced by the producer with a release store after the
	// copy into data completes, so a consumer that observes a new head
	// value also observes the samples that produced it.
	head atomic.Uint64
	// tail is advanced by the consumer with a release store after it is
	// done reading, so the producer's acquire load of tail never sees a
	// region the consumer is still using.
	tail atomic.Uint64

	overruns atomic.Uint64
}

// New allocates a Buffer that can hold capacity samples. The backing
// array is allocated once; no further allocation occurs on push or read.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer{
		data: make([]float32, capacity),
		cap:  uint64(capacity),
	}
}

// Capacity returns the fixed sample capacity of the buffer.
func (b *Buffer) Capacity() int { return int(b.cap) }

// WriteAvailable returns the number of samples that can currently be
// pushed without loss. Safe to call from the producer only.
func (b *Buffer) WriteAvailable() int {
	head := b.head.Load()
	tail := b.tail.Load()
	return int(b.cap - (head - tail))
}

// ReadAvailable returns the number of samples currently queued for the
// consumer. Safe to call from the consumer only.
func (b *Buffer) ReadAvailable() int {
	head := b.head.Load()
	tail := b.tail.Load()
	return int(head - tail)
}

// Overruns returns the cumulative number of samples that were dropped
// because Push was called with more samples than WriteAvailable.
func (b *Buffer) Overruns() uint64 { return b.overruns.Load() }

// Push copies up to min(len(src), WriteAvailable()) samples into the
// buffer and returns the number accepted. It never blocks and never
// allocates, so it is safe to call from a realtime audio callback. A
// return value less than len(src) indicates an overrun: the caller is
// responsible for reporting it, Push itself only counts it.
func (b *Buffer) Push(src []float32) int {
	head := b.head.Load()
	tail := b.tail.Load()

	avail := int(b.cap - (head - tail))
	n := len(src)
	if n > avail {
		b.overruns.Add(uint64(n - avail))
		n = avail
	}
	if n <= 0 {
		return 0
	}

	start := head % b.cap
	firstLen := uint64(n)
	if firstLen > b.cap-start {
		firstLen = b.cap - start
	}
	copy(b.data[start:start+firstLen], src[:firstLen])
	if uint64(n) > firstLen {
		copy(b.data[0:uint64(n)-firstLen], src[firstLen:n])
	}

	b.head.Store(head + uint64(n))
	return n
}

// Peek2 exposes the currently readable region as up to two contiguous
// spans without advancing the read cursor. The second span is non-empty
// only when the readable region wraps past the end of the backing array.
// Neither span is valid after the next call to Push or ReadAdvance.
func (b *Buffer) Peek2() (first, second []float32) {
	head := b.head.Load()
	tail := b.tail.Load()
	avail := head - tail
	if avail == 0 {
		return nil, nil
	}

	start := tail % b.cap
	firstLen := avail
	if firstLen > b.cap-start {
		firstLen = b.cap - start
	}
	first = b.data[start : start+firstLen]
	if avail > firstLen {
		second = b.data[0 : avail-firstLen]
	}
	return first, second
}

// ReadAdvance moves the read cursor forward by n samples. n must not
// exceed ReadAvailable().
func (b *Buffer) ReadAdvance(n int) {
	if n <= 0 {
		return
	}
	b.tail.Store(b.tail.Load() + uint64(n))
}
