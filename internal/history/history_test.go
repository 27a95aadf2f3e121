package history

import (
	"testing"
	"time"
)

func TestPriceHistoryEvictsOldest(t *testing.T) {
	h := NewPriceHistory(3)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		h.Push(p)
	}
	if h.Len() != 3 {
		t.Fatalf("expected len 3, got %d", h.Len())
	}
	if h.At(0) != 3 || h.At(1) != 4 || h.At(2) != 5 {
		t.Fatalf("unexpected contents: %v %v %v", h.At(0), h.At(1), h.At(2))
	}
	if h.Last() != 5 {
		t.Fatalf("expected newest value last, got %v", h.Last())
	}
}

func TestPriceHistoryNeverExceedsCapacity(t *testing.T) {
	h := NewPriceHistory(10)
	for i := 0; i < 100; i++ {
		h.Push(float64(i))
		if h.Len() > h.Cap() {
			t.Fatalf("len %d exceeds capacity %d", h.Len(), h.Cap())
		}
		if h.Last() != float64(i) {
			t.Fatalf("newest value must be last: got %v want %v", h.Last(), float64(i))
		}
	}
}

func TestPriceHistorySMA(t *testing.T) {
	h := NewPriceHistory(5)
	for _, p := range []float64{2, 4, 6} {
		h.Push(p)
	}
	if got := h.SMA(3); got != 4 {
		t.Fatalf("expected SMA 4, got %v", got)
	}
	if got := h.SMA(4); got != 0 {
		t.Fatalf("expected 0 when history shorter than window, got %v", got)
	}
}

func TestPriceHistoryTail(t *testing.T) {
	h := NewPriceHistory(4)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		h.Push(p)
	}
	tail := h.Tail(2)
	if len(tail) != 2 || tail[0] != 4 || tail[1] != 5 {
		t.Fatalf("unexpected tail: %v", tail)
	}
}

func TestTickBufferPriceAt(t *testing.T) {
	now := time.Now()
	b := NewTickBuffer(16)
	for i := 90; i >= 0; i -= 10 {
		b.Push(Tick{Ts: now.Add(-time.Duration(i) * time.Second), Price: float64(100 - i)})
	}

	px, ok := PriceAt(b.Snapshot(), now, 60, 15)
	if !ok {
		t.Fatalf("expected a sample near 60s ago")
	}
	if px != 40 {
		t.Fatalf("expected price 40 at 60s ago, got %v", px)
	}
}

func TestTickBufferPriceAtOutsideTolerance(t *testing.T) {
	now := time.Now()
	b := NewTickBuffer(4)
	b.Push(Tick{Ts: now, Price: 1})

	if _, ok := PriceAt(b.Snapshot(), now, 60, 15); ok {
		t.Fatalf("expected no sample within tolerance")
	}
}

func TestTickBufferEvicts(t *testing.T) {
	b := NewTickBuffer(2)
	now := time.Now()
	b.Push(Tick{Ts: now, Price: 1})
	b.Push(Tick{Ts: now.Add(time.Second), Price: 2})
	b.Push(Tick{Ts: now.Add(2 * time.Second), Price: 3})
	if b.Len() != 2 {
		t.Fatalf("expected len 2, got %d", b.Len())
	}
	if b.At(0).Price != 2 || b.At(1).Price != 3 {
		t.Fatalf("unexpected contents after eviction")
	}
}
