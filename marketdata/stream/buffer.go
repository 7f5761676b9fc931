package stream

import "sync"

// history is a fixed-capacity, timestamp-ordered buffer of samples.
// Appending beyond capacity evicts the oldest sample. It is safe for
// concurrent use: readers always get a consistent copy, never a view
// into the internal slice.
type history struct {
	mu      sync.RWMutex
	samples []Sample
	head    int
	size    int
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{samples: make([]Sample, capacity)}
}

// append adds s, evicting the oldest sample if the buffer is full.
func (h *history) append(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tail := (h.head + h.size) % len(h.samples)
	h.samples[tail] = s
	if h.size < len(h.samples) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.samples)
	}
}

// snapshot returns copies of the timestamps and prices in insertion order.
// The two slices always have equal length.
func (h *history) snapshot() (timestamps, prices []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	timestamps = make([]float64, h.size)
	prices = make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		s := h.samples[(h.head+i)%len(h.samples)]
		timestamps[i] = s.Timestamp
		prices[i] = s.Price
	}
	return timestamps, prices
}

func (h *history) latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size == 0 {
		return Sample{}, false
	}
	return h.samples[(h.head+h.size-1)%len(h.samples)], true
}

func (h *history) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
}

// changeOver returns the percentage change between the newest sample and
// the most recent sample at least windowSeconds older than it. It scans
// backward from the newest entry. The second return value is false if the
// buffer holds fewer than two samples or no sample is old enough.
func (h *history) changeOver(windowSeconds float64) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size < 2 {
		return 0, false
	}
	newest := h.samples[(h.head+h.size-1)%len(h.samples)]
	for i := h.size - 2; i >= 0; i-- {
		ref := h.samples[(h.head+i)%len(h.samples)]
		if newest.Timestamp-ref.Timestamp >= windowSeconds {
			if ref.Price == 0 {
				return 0, false
			}
			return (newest.Price - ref.Price) / ref.Price * 100, true
		}
	}
	return 0, false
}
