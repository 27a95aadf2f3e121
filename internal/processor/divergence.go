package processor

import (
	"math"

	"updownbot/internal/signal"
)

// SourceDivergence is the name the divergence processor signs its signals with.
const SourceDivergence = "PriceDivergence"

// Divergence trades mispricings between the market's implied probability and
// the underlying spot momentum. Two mutually exclusive sub-rules:
//
//  1. Extreme-probability fade: an implied probability beyond the extreme
//     thresholds that spot momentum does not confirm is faded back toward the
//     center.
//  2. Momentum mispricing: a probability still near 0.5 while spot is moving
//     hard means the market has not priced the move in yet; trade with the
//     momentum.
//
// The market price and the spot price live on different scales; only momentum
// is ever compared across them, never levels.
type Divergence struct {
	momThreshold  float64
	extremeProb   float64
	lowProb       float64
	minConfidence float64

	spotHistory []float64 // rolling spot readings, one per decision cycle
}

// NewDivergence builds the divergence processor. Non-positive params fall back
// to 0.3% momentum and the 0.68/0.32 fade thresholds.
func NewDivergence(momThreshold, extremeProb, lowProb float64) *Divergence {
	if momThreshold <= 0 {
		momThreshold = 0.003
	}
	if extremeProb <= 0 {
		extremeProb = 0.68
	}
	if lowProb <= 0 {
		lowProb = 0.32
	}
	return &Divergence{
		momThreshold:  momThreshold,
		extremeProb:   extremeProb,
		lowProb:       lowProb,
		minConfidence: 0.55,
	}
}

// Name returns the identifier for the processor.
func (p *Divergence) Name() string { return SourceDivergence }

const maxSpotHistory = 10

// spotMomentum updates the rolling spot history and returns the spot rate of
// change versus three readings ago. Falls back to the market's own momentum
// when no spot price is available.
func (p *Divergence) spotMomentum(ctx *Context) float64 {
	if ctx.SpotPrice == nil {
		return ctx.Momentum
	}
	spot := *ctx.SpotPrice
	p.spotHistory = append(p.spotHistory, spot)
	if len(p.spotHistory) > maxSpotHistory {
		p.spotHistory = p.spotHistory[1:]
	}
	if len(p.spotHistory) < 3 {
		return 0
	}
	anchor := p.spotHistory[len(p.spotHistory)-3]
	if anchor == 0 {
		return 0
	}
	return (spot - anchor) / anchor
}

// Process emits a fade or momentum signal, or nothing.
func (p *Divergence) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if ctx == nil {
		return nil
	}
	momentum := p.spotMomentum(ctx)

	if price >= p.extremeProb && momentum <= 0.001 {
		extremeness := (price - p.extremeProb) / (1 - p.extremeProb)
		return p.fadeSignal(price, momentum, extremeness, signal.Bearish, ctx)
	}
	if price <= p.lowProb && momentum >= -0.001 {
		extremeness := (p.lowProb - price) / p.lowProb
		return p.fadeSignal(price, momentum, extremeness, signal.Bullish, ctx)
	}

	if price >= 0.35 && price <= 0.65 && math.Abs(momentum) >= p.momThreshold {
		return p.momentumSignal(price, momentum, ctx)
	}
	return nil
}

func (p *Divergence) fadeSignal(price, momentum, extremeness float64, direction signal.Direction, ctx *Context) *signal.TradingSignal {
	confidence := math.Min(0.80, p.minConfidence+extremeness*0.25)
	strength := signal.Moderate
	if extremeness > 0.5 {
		strength = signal.Strong
	}
	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     p.Name(),
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Price:      price,
		Meta: map[string]float64{
			"spot_momentum": momentum,
			"extremeness":   extremeness,
		},
	}
}

func (p *Divergence) momentumSignal(price, momentum float64, ctx *Context) *signal.TradingSignal {
	ratio := math.Abs(momentum) / p.momThreshold
	confidence := math.Min(0.78, 0.55+math.Min(ratio-1, 2)*0.08)
	if confidence < p.minConfidence {
		return nil
	}

	var strength signal.Strength
	switch {
	case ratio >= 3:
		strength = signal.Strong
	case ratio >= 2:
		strength = signal.Moderate
	default:
		strength = signal.Weak
	}

	direction := signal.Bullish
	if momentum < 0 {
		direction = signal.Bearish
	}

	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     p.Name(),
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Price:      price,
		Meta: map[string]float64{
			"spot_momentum":     momentum,
			"momentum_strength": ratio,
		},
	}
}
