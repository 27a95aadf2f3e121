package processor

import (
	"math"

	"updownbot/internal/signal"
)

// SourceSpike is the name the spike detector signs its signals with.
const SourceSpike = "SpikeDetection"

// Spike fades sudden deviations from the moving average. When no deviation
// fires, it falls back to a short-horizon momentum-continuation check over the
// last three samples; the two sub-signals are mutually exclusive per cycle.
type Spike struct {
	threshold     float64 // min |price-MA|/MA to fade
	momThreshold  float64 // min 3-sample velocity to continue
	lookback      int
	minConfidence float64
}

// NewSpike builds the spike detector. Non-positive params fall back to
// defaults (5% deviation, 20-sample lookback).
func NewSpike(threshold float64, lookback int) *Spike {
	if threshold <= 0 {
		threshold = 0.05
	}
	if lookback <= 0 {
		lookback = 20
	}
	return &Spike{
		threshold:     threshold,
		momThreshold:  threshold / 3,
		lookback:      lookback,
		minConfidence: 0.55,
	}
}

// Name returns the identifier for the processor.
func (p *Spike) Name() string { return SourceSpike }

// Process emits a counter-trend signal on a spike, or a lower-confidence
// continuation signal on short-horizon velocity, or nothing.
func (p *Spike) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if len(hist) < p.lookback {
		return nil
	}

	recent := hist[len(hist)-p.lookback:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	ma := sum / float64(len(recent))
	if ma == 0 {
		return nil
	}

	deviation := (price - ma) / ma
	if math.Abs(deviation) >= p.threshold {
		return p.fade(price, ma, deviation, ctx)
	}
	return p.continuation(price, hist, ctx)
}

// fade bets on mean reversion: a spike up is faded bearish, a spike down
// bullish.
func (p *Spike) fade(price, ma, deviation float64, ctx *Context) *signal.TradingSignal {
	dev := math.Abs(deviation)

	direction := signal.Bullish
	if deviation > 0 {
		direction = signal.Bearish
	}

	var strength signal.Strength
	switch {
	case dev >= 0.25:
		strength = signal.VeryStrong
	case dev >= 0.20:
		strength = signal.Strong
	case dev >= 0.15:
		strength = signal.Moderate
	default:
		strength = signal.Weak
	}

	confidence := math.Min(0.95, 0.50+(dev-p.threshold)*2)
	if confidence < p.minConfidence {
		return nil
	}

	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     p.Name(),
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Price:      price,
		Meta: map[string]float64{
			"deviation":      deviation,
			"moving_average": ma,
		},
	}
}

// continuation rides short-horizon velocity when the MA deviation stayed quiet.
func (p *Spike) continuation(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if len(hist) < 3 {
		return nil
	}
	anchor := hist[len(hist)-3]
	if anchor == 0 {
		return nil
	}
	velocity := (price - anchor) / anchor
	if math.Abs(velocity) < p.momThreshold {
		return nil
	}

	direction := signal.Bullish
	if velocity < 0 {
		direction = signal.Bearish
	}

	confidence := math.Min(0.68, 0.55+(math.Abs(velocity)/p.momThreshold-1)*0.04)
	if confidence < p.minConfidence {
		return nil
	}

	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     p.Name(),
		Direction:  direction,
		Strength:   signal.Weak,
		Confidence: confidence,
		Price:      price,
		Meta: map[string]float64{
			"velocity": velocity,
		},
	}
}
