package signal

// Ring is a fixed-capacity ring buffer of float64 samples. Oldest values
// are overwritten once the buffer is full.
type Ring struct {
	buf   []float64
	head  int
	count int
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest when full.
func (r *Ring) Push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored values.
func (r *Ring) Len() int { return r.count }

// Cap returns the buffer capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Slice returns the stored values oldest-first in a fresh slice.
func (r *Ring) Slice() []float64 {
	out := make([]float64, r.count)
	start := r.head - r.count
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i+len(r.buf))%len(r.buf)]
	}
	return out
}

// Tail returns up to n most recent values, oldest-first.
func (r *Ring) Tail(n int) []float64 {
	if n > r.count {
		n = r.count
	}
	out := make([]float64, n)
	start := r.head - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i+len(r.buf))%len(r.buf)]
	}
	return out
}

// At returns the i-th most recent value (0 = newest). ok is false when
// fewer than i+1 values are stored.
func (r *Ring) At(i int) (float64, bool) {
	if i < 0 || i >= r.count {
		return 0, false
	}
	idx := (r.head - 1 - i + 2*len(r.buf)) % len(r.buf)
	return r.buf[idx], true
}

// Reset discards all stored values.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}
