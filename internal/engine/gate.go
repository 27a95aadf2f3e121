package engine

import (
	"time"

	"updownbot/internal/config"
	"updownbot/internal/market"
	"updownbot/internal/signal"
)

// TradeKey identifies one epoch's single trade opportunity. Window is the
// sub-interval index within the market, so a multi-epoch market could in
// principle trade once per epoch.
type TradeKey struct {
	StartTs int64
	Window  int
}

// TradeKeyFor derives the de-duplication key for a decision fired at now.
func TradeKeyFor(m market.Market, now time.Time, epoch time.Duration) TradeKey {
	window := 0
	if epoch > 0 {
		if elapsed := now.Sub(m.Start); elapsed > 0 {
			window = int(elapsed / epoch)
		}
	}
	return TradeKey{StartTs: m.StartTs, Window: window}
}

// Gate validates incoming quotes, tracks the stability warm-up, and answers
// whether a timestamp falls inside the epoch's trade window. Owned by the
// quote-handling goroutine; no locking.
type Gate struct {
	stabilityTicks int
	minSpread      float64
	maxQuote       float64
	windowStart    time.Duration
	windowEnd      time.Duration

	count  int
	stable bool
}

// NewGate builds a gate from the tuning knobs.
func NewGate(cfg config.Gate) *Gate {
	if cfg.StabilityTicks <= 0 {
		cfg.StabilityTicks = 3
	}
	if cfg.MinSpread <= 0 {
		cfg.MinSpread = 0.001
	}
	if cfg.MaxQuote <= 0 {
		cfg.MaxQuote = 0.999
	}
	if cfg.WindowEndSecs <= 0 {
		cfg.WindowStartSecs = 780
		cfg.WindowEndSecs = 840
	}
	return &Gate{
		stabilityTicks: cfg.StabilityTicks,
		minSpread:      cfg.MinSpread,
		maxQuote:       cfg.MaxQuote,
		windowStart:    time.Duration(cfg.WindowStartSecs) * time.Second,
		windowEnd:      time.Duration(cfg.WindowEndSecs) * time.Second,
	}
}

// Valid reports whether both sides of the quote are present and inside the
// sane probability range. A side at or above maxQuote is a saturated quote.
func (g *Gate) Valid(q signal.QuoteTick) bool {
	if q.Bid < g.minSpread || q.Ask < g.minSpread {
		return false
	}
	if q.Bid > g.maxQuote || q.Ask > g.maxQuote {
		return false
	}
	return true
}

// Observe runs validation and advances the stability counter on acceptance.
// Returns whether the quote was accepted.
func (g *Gate) Observe(q signal.QuoteTick) bool {
	if !g.Valid(q) {
		return false
	}
	if !g.stable {
		g.count++
		if g.count >= g.stabilityTicks {
			g.stable = true
		}
	}
	return true
}

// Stable reports whether the warm-up completed.
func (g *Gate) Stable() bool { return g.stable }

// Reset restarts the warm-up from zero.
func (g *Gate) Reset() {
	g.count = 0
	g.stable = false
}

// MarkStable skips the warm-up. Applied on market switches so the first tick
// of a fresh epoch can trade as soon as its window opens.
func (g *Gate) MarkStable() {
	g.count = g.stabilityTicks
	g.stable = true
}

// InWindow reports whether now falls in the market's trade-eligible window
// [windowStart, windowEnd) measured from the epoch start.
func (g *Gate) InWindow(m market.Market, now time.Time) bool {
	elapsed := now.Sub(m.Start)
	return elapsed >= g.windowStart && elapsed < g.windowEnd
}
