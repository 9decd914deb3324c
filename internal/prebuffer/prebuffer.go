// Package prebuffer implements the fixed-capacity ring of pre-onset
// samples the triggered writer keeps while the gate is closed.
package prebuffer

// Buffer holds the most recent min(pushed, capacity) samples in
// chronological order, oldest-eviction. It is used only by the writer
// thread and requires no synchronization.
type Buffer struct {
	data []float32
	// start is the index of the oldest sample; size is the number of
	// valid samples currently held.
	start, size int
}

// New allocates a Buffer with the given sample capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("prebuffer: capacity must be positive")
	}
	return &Buffer{data: make([]float32, capacity)}
}

// Capacity returns the fixed capacity in samples.
func (b *Buffer) Capacity() int { return len(b.data) }

// Size returns the number of samples currently held.
func (b *Buffer) Size() int { return b.size }

// Reset discards all held samples without releasing the backing array.
func (b *Buffer) Reset() {
	b.start, b.size = 0, 0
}

// Push appends src, evicting the oldest samples first if necessary. If
// src itself is at least Capacity() long, only the trailing Capacity()
// samples of src are retained.
func (b *Buffer) Push(src []float32) {
	cap := len(b.data)
	if len(src) >= cap {
		copy(b.data, src[len(src)-cap:])
		b.start, b.size = 0, cap
		return
	}

	free := cap - b.size
	if len(src) > free {
		evict := len(src) - free
		b.start = (b.start + evict) % cap
		b.size -= evict
	}

	writeAt := (b.start + b.size) % cap
	n := copy(b.data[writeAt:], src)
	if n < len(src) {
		copy(b.data[0:], src[n:])
	}
	b.size += len(src)
}

// SnapshotInto copies the most recent k samples (k <= Size()) into dst,
// in chronological order, and returns the number of samples written.
// dst must have length at least k.
func (b *Buffer) SnapshotInto(dst []float32, k int) int {
	if k > b.size {
		k = b.size
	}
	if k <= 0 {
		return 0
	}
	cap := len(b.data)
	from := (b.start + b.size - k) % cap
	n := copy(dst[:k], b.data[from:])
	if n < k {
		copy(dst[n:k], b.data[0:])
	}
	return k
}

// Snapshot returns a freshly allocated copy of the most recent k samples
// (k <= Size()) in chronological order.
func (b *Buffer) Snapshot(k int) []float32 {
	if k > b.size {
		k = b.size
	}
	out := make([]float32, k)
	b.SnapshotInto(out, k)
	return out
}
