// Package signal standardizes payloads shared between the quote feed, signal
// processors, and the fusion/decision layers.
package signal

import "time"

// Direction is the closed set of directional calls a processor can make.
type Direction int

const (
	// Bullish expects the market's YES price to resolve higher.
	Bullish Direction = iota + 1
	// Bearish expects the market's YES price to resolve lower.
	Bearish
)

// String implements fmt.Stringer for log output.
func (d Direction) String() string {
	switch d {
	case Bullish:
		return "BULLISH"
	case Bearish:
		return "BEARISH"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// Strength grades how hard a processor is leaning. Ordinal values feed the
// fusion contribution formula (value/4).
type Strength int

const (
	Weak Strength = iota + 1
	Moderate
	Strong
	VeryStrong
)

// String implements fmt.Stringer for log output.
func (s Strength) String() string {
	switch s {
	case Weak:
		return "WEAK"
	case Moderate:
		return "MODERATE"
	case Strong:
		return "STRONG"
	case VeryStrong:
		return "VERY_STRONG"
	default:
		return "UNKNOWN"
	}
}

// QuoteTick is one bid/ask update for a single instrument, as delivered by the
// trading-framework feed adapter.
type QuoteTick struct {
	InstrumentID string
	Bid          float64
	Ask          float64
	Ts           time.Time
}

// Mid returns the mid price of the quote.
func (q QuoteTick) Mid() float64 { return (q.Bid + q.Ask) / 2 }

// TradingSignal is one processor's directional call for the current decision
// cycle. Immutable once emitted.
type TradingSignal struct {
	Ts         time.Time
	Source     string
	Direction  Direction
	Strength   Strength
	Confidence float64 // 0.0 - 1.0
	Price      float64 // market price when the signal fired
	Meta       map[string]float64
}

// Score combines strength and confidence into a 0-100 scale.
func (s TradingSignal) Score() float64 {
	return (float64(s.Strength)/4*0.5 + s.Confidence*0.5) * 100
}

// FusedSignal is the weighted consensus of one decision cycle's signals.
type FusedSignal struct {
	Ts         time.Time
	Direction  Direction
	Confidence float64
	Score      float64 // dominant side's share of total contribution, 0-100
	Signals    []TradingSignal
	Weights    map[string]float64
	Bullish    float64 // accumulated bullish contribution
	Bearish    float64 // accumulated bearish contribution
}

// NumSignals reports how many signals survived into the consensus.
func (f FusedSignal) NumSignals() int { return len(f.Signals) }
