// Package risk enforces sizing and portfolio guard-rails in front of order
// placement. The gate never sizes positions; it only answers whether a
// proposed fixed-size position is allowed right now.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/signal"
)

// Limits are the hard caps the gate enforces.
type Limits struct {
	MaxPositionSizeUSD float64
	MaxExposureUSD     float64
	MaxPositions       int
	MaxDailyLossUSD    float64
	MaxDrawdownPct     float64
	StartingBalanceUSD float64
}

// Position is one tracked open position. ExpiresAt is the position's market
// end time; after that the market has resolved and the position no longer
// counts toward exposure.
type Position struct {
	ID         string
	SizeUSD    float64
	EntryPrice float64
	Direction  signal.Direction
	OpenedAt   time.Time
	ExpiresAt  time.Time
}

// Gate tracks open positions and running P&L, and validates new positions
// against the configured limits. Safe for concurrent use.
type Gate struct {
	limits Limits
	log    zerolog.Logger

	mu          sync.Mutex
	positions   map[string]Position
	dailyPnL    float64
	dailyTrades int
	balance     float64
	peakBalance float64
	statsDay    time.Time
}

// NewGate builds a gate. Non-positive limits fall back to conservative
// defaults: $1 per position, $10 exposure, 5 positions, $5 daily loss, 15%
// drawdown, $1000 starting balance.
func NewGate(limits Limits, log zerolog.Logger) *Gate {
	if limits.MaxPositionSizeUSD <= 0 {
		limits.MaxPositionSizeUSD = 1
	}
	if limits.MaxExposureUSD <= 0 {
		limits.MaxExposureUSD = 10
	}
	if limits.MaxPositions <= 0 {
		limits.MaxPositions = 5
	}
	if limits.MaxDailyLossUSD <= 0 {
		limits.MaxDailyLossUSD = 5
	}
	if limits.MaxDrawdownPct <= 0 {
		limits.MaxDrawdownPct = 0.15
	}
	if limits.StartingBalanceUSD <= 0 {
		limits.StartingBalanceUSD = 1000
	}
	return &Gate{
		limits:      limits,
		log:         log,
		positions:   make(map[string]Position),
		balance:     limits.StartingBalanceUSD,
		peakBalance: limits.StartingBalanceUSD,
	}
}

// Validate reports whether a new position of the given size may be opened.
// Daily stats roll over lazily on the first validation of a new UTC day.
func (g *Gate) Validate(sizeUSD float64, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay(now)

	if sizeUSD > g.limits.MaxPositionSizeUSD {
		return fmt.Errorf("position size $%.2f exceeds max $%.2f", sizeUSD, g.limits.MaxPositionSizeUSD)
	}
	if len(g.positions) >= g.limits.MaxPositions {
		return fmt.Errorf("max positions reached (%d)", g.limits.MaxPositions)
	}
	if exposure := g.exposureLocked() + sizeUSD; exposure > g.limits.MaxExposureUSD {
		return fmt.Errorf("exposure $%.2f would exceed max $%.2f", exposure, g.limits.MaxExposureUSD)
	}
	if g.dailyPnL < -g.limits.MaxDailyLossUSD {
		return fmt.Errorf("daily loss limit reached ($%.2f)", -g.dailyPnL)
	}
	if dd := g.drawdownLocked(); dd > g.limits.MaxDrawdownPct {
		return fmt.Errorf("drawdown %.1f%% exceeds max %.1f%%", dd*100, g.limits.MaxDrawdownPct*100)
	}
	return nil
}

// Open starts tracking a position.
func (g *Gate) Open(p Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[p.ID] = p
	g.dailyTrades++
	g.log.Info().Str("id", p.ID).Float64("size_usd", p.SizeUSD).
		Float64("entry", p.EntryPrice).Stringer("direction", p.Direction).
		Msg("position opened")
}

// Close settles a position at the exit price and returns the realized P&L.
// The second return is false when the position is unknown.
func (g *Gate) Close(id string, exitPrice float64) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.positions[id]
	if !ok {
		return 0, false
	}
	delete(g.positions, id)

	var pnlPct float64
	if p.EntryPrice > 0 {
		if p.Direction == signal.Bullish {
			pnlPct = (exitPrice - p.EntryPrice) / p.EntryPrice
		} else {
			pnlPct = (p.EntryPrice - exitPrice) / p.EntryPrice
		}
	}
	pnl := p.SizeUSD * pnlPct

	g.balance += pnl
	g.dailyPnL += pnl
	if g.balance > g.peakBalance {
		g.peakBalance = g.balance
	}

	g.log.Info().Str("id", id).Float64("pnl_usd", pnl).Msg("position closed")
	return pnl, true
}

// ExpireBefore drops positions whose market already resolved. Settlement of
// live positions happens on the venue; the gate only stops counting them so
// the position and exposure limits do not fill up permanently. Returns how
// many positions were released.
func (g *Gate) ExpireBefore(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	released := 0
	for id, p := range g.positions {
		if p.ExpiresAt.IsZero() || p.ExpiresAt.After(now) {
			continue
		}
		delete(g.positions, id)
		released++
	}
	return released
}

// RecordSettlement folds an externally settled trade's P&L into the daily and
// balance tracking without position bookkeeping. Simulated trades settle
// instantly and never occupy a position slot.
func (g *Gate) RecordSettlement(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyTrades++
	g.balance += pnl
	g.dailyPnL += pnl
	if g.balance > g.peakBalance {
		g.peakBalance = g.balance
	}
}

// OpenPositions returns the number of tracked positions.
func (g *Gate) OpenPositions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.positions)
}

// Exposure returns the summed size of open positions.
func (g *Gate) Exposure() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exposureLocked()
}

// Drawdown returns the current drawdown from the peak balance.
func (g *Gate) Drawdown() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drawdownLocked()
}

// DailyPnL returns today's realized P&L.
func (g *Gate) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyPnL
}

func (g *Gate) exposureLocked() float64 {
	var total float64
	for _, p := range g.positions {
		total += p.SizeUSD
	}
	return total
}

func (g *Gate) drawdownLocked() float64 {
	if g.peakBalance <= 0 {
		return 0
	}
	return (g.peakBalance - g.balance) / g.peakBalance
}

// rollDay resets daily stats when the UTC day changes.
func (g *Gate) rollDay(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if g.statsDay.IsZero() {
		g.statsDay = day
		return
	}
	if day.After(g.statsDay) {
		g.statsDay = day
		g.dailyPnL = 0
		g.dailyTrades = 0
		g.log.Info().Msg("daily risk stats reset")
	}
}
