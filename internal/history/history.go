// Package history holds the rolling market-data buffers the decision core
// reads from: a fixed-capacity mid-price ring and a time-indexed tick buffer.
package history

import "time"

// PriceHistory is a fixed-capacity, insertion-ordered ring of mid prices.
// Oldest values are evicted on overflow. Not safe for concurrent use; it is
// owned by the quote-handling goroutine.
type PriceHistory struct {
	buf   []float64
	start int
	n     int
}

// NewPriceHistory creates an empty history with the given capacity.
func NewPriceHistory(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriceHistory{buf: make([]float64, capacity)}
}

// Push appends a price, evicting the oldest value when full.
func (h *PriceHistory) Push(price float64) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = price
		h.n++
		return
	}
	h.buf[h.start] = price
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored prices.
func (h *PriceHistory) Len() int { return h.n }

// Cap returns the configured capacity.
func (h *PriceHistory) Cap() int { return len(h.buf) }

// At returns the i-th oldest price (0 = oldest).
func (h *PriceHistory) At(i int) float64 {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Last returns the newest price, or 0 when empty.
func (h *PriceHistory) Last() float64 {
	if h.n == 0 {
		return 0
	}
	return h.At(h.n - 1)
}

// Tail returns up to n newest prices, oldest first, as a fresh slice.
func (h *PriceHistory) Tail(n int) []float64 {
	if n > h.n {
		n = h.n
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = h.At(h.n - n + i)
	}
	return out
}

// Snapshot copies the full history, oldest first. The decision worker reads
// snapshots so the quote goroutine can keep writing.
func (h *PriceHistory) Snapshot() []float64 {
	return h.Tail(h.n)
}

// SMA returns the simple moving average of the last n prices, or 0 when the
// history holds fewer than n points.
func (h *PriceHistory) SMA(n int) float64 {
	if n <= 0 || h.n < n {
		return 0
	}
	var sum float64
	for i := h.n - n; i < h.n; i++ {
		sum += h.At(i)
	}
	return sum / float64(n)
}

// Tick is one timestamped mid-price sample.
type Tick struct {
	Ts    time.Time
	Price float64
}

// TickBuffer is a fixed-capacity, time-ordered buffer of ticks supporting
// "price N seconds ago" lookups for velocity calculations. PriceHistory only
// answers "Nth from last", which is not the same question at uneven tick
// rates.
type TickBuffer struct {
	buf   []Tick
	start int
	n     int
}

// NewTickBuffer creates an empty buffer with the given capacity.
func NewTickBuffer(capacity int) *TickBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &TickBuffer{buf: make([]Tick, capacity)}
}

// Push appends a tick, evicting the oldest when full.
func (b *TickBuffer) Push(t Tick) {
	if b.n < len(b.buf) {
		b.buf[(b.start+b.n)%len(b.buf)] = t
		b.n++
		return
	}
	b.buf[b.start] = t
	b.start = (b.start + 1) % len(b.buf)
}

// Len returns the number of stored ticks.
func (b *TickBuffer) Len() int { return b.n }

// At returns the i-th oldest tick (0 = oldest).
func (b *TickBuffer) At(i int) Tick {
	return b.buf[(b.start+i)%len(b.buf)]
}

// Snapshot copies the buffer contents, oldest first.
func (b *TickBuffer) Snapshot() []Tick {
	out := make([]Tick, b.n)
	for i := 0; i < b.n; i++ {
		out[i] = b.At(i)
	}
	return out
}

// PriceAt returns the price of the tick nearest to (now - secondsAgo), walking
// newest-first and stopping once samples fall more than tolerance seconds past
// the target. Returns false when no sample lands within tolerance. Prices are
// never interpolated.
func PriceAt(ticks []Tick, now time.Time, secondsAgo, tolerance float64) (float64, bool) {
	target := now.Add(-time.Duration(secondsAgo * float64(time.Second)))
	best := 0.0
	bestDiff := tolerance
	found := false
	for i := len(ticks) - 1; i >= 0; i-- {
		diff := ticks[i].Ts.Sub(target).Seconds()
		abs := diff
		if abs < 0 {
			abs = -abs
		}
		if abs <= bestDiff {
			bestDiff = abs
			best = ticks[i].Price
			found = true
		} else if diff < -tolerance {
			// Past the target window; buffer is time-ordered so stop.
			break
		}
	}
	return best, found
}
