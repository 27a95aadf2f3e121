package paper

import "sync"

// Ledger stores settled trades in memory for quick inspection and for the
// weight-adaptation job's per-source statistics.
type Ledger struct {
	mu     sync.Mutex
	trades []Trade
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{trades: make([]Trade, 0, capacity)}
}

// Record appends a trade to the ledger.
func (l *Ledger) Record(trade Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *Ledger) Snapshot() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len reports how many trades have settled.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}

// Reset clears all stored trades.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.trades = l.trades[:0]
	l.mu.Unlock()
}
