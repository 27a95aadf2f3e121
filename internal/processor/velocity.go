package processor

import (
	"math"

	"updownbot/internal/history"
	"updownbot/internal/signal"
)

// SourceVelocity is the name the velocity processor signs its signals with.
const SourceVelocity = "TickVelocity"

// Velocity measures how fast the market's own price has been moving over the
// last 30 and 60 seconds of ticks. Fast moves reflect live order flow and tend
// to continue for another leg.
type Velocity struct {
	threshold60s  float64
	threshold30s  float64
	minTicks      int
	tolerance     float64 // seconds a looked-up tick may miss its target by
	minConfidence float64
}

// NewVelocity builds the velocity processor. Non-positive thresholds fall back
// to 1.5%/60s and 1.0%/30s.
func NewVelocity(threshold60s, threshold30s float64) *Velocity {
	if threshold60s <= 0 {
		threshold60s = 0.015
	}
	if threshold30s <= 0 {
		threshold30s = 0.010
	}
	return &Velocity{
		threshold60s:  threshold60s,
		threshold30s:  threshold30s,
		minTicks:      5,
		tolerance:     15,
		minConfidence: 0.55,
	}
}

// Name returns the identifier for the processor.
func (p *Velocity) Name() string { return SourceVelocity }

// Process emits a signal in the direction of recent tick velocity, or nothing
// when the buffer is too thin or the move too slow.
func (p *Velocity) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if ctx == nil || len(ctx.Ticks) < p.minTicks {
		return nil
	}

	price60, ok60 := history.PriceAt(ctx.Ticks, ctx.Now, 60, p.tolerance)
	price30, ok30 := history.PriceAt(ctx.Ticks, ctx.Now, 30, p.tolerance)
	if !ok60 && !ok30 {
		return nil
	}

	var vel60, vel30 float64
	if ok60 && price60 != 0 {
		vel60 = (price - price60) / price60
	}
	if ok30 && price30 != 0 {
		vel30 = (price - price30) / price30
	}

	// Acceleration: compare the recent 30s leg against the prior 30s leg.
	var acceleration float64
	if ok60 && ok30 {
		firstLeg := vel60 - vel30
		acceleration = vel30 - firstLeg
	}

	primary := vel30
	threshold := p.threshold30s
	if !ok30 {
		primary = vel60
		threshold = p.threshold60s
	}

	absVel := math.Abs(primary)
	if absVel < threshold {
		return nil
	}

	direction := signal.Bullish
	if primary < 0 {
		direction = signal.Bearish
	}

	var strength signal.Strength
	switch {
	case absVel >= 0.04:
		strength = signal.VeryStrong
	case absVel >= 0.025:
		strength = signal.Strong
	case absVel >= 0.015:
		strength = signal.Moderate
	default:
		strength = signal.Weak
	}

	confidence := math.Min(0.82, 0.55+(absVel/threshold-1)*0.12)

	accelAgrees := (acceleration > 0 && primary > 0) || (acceleration < 0 && primary < 0)
	if accelAgrees && math.Abs(acceleration) > 0.005 {
		confidence = math.Min(0.88, confidence+0.06)
	}

	// Opposing 30s and 60s legs means a reversal in progress.
	if ok60 && ok30 && (vel60 > 0) != (vel30 > 0) {
		confidence *= 0.80
	}

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
			"velocity_60s": vel60,
			"velocity_30s": vel30,
			"acceleration": acceleration,
		},
	}
}
