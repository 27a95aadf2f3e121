package processor

import (
	"context"
	"math"
	"sync"
	"time"

	"updownbot/internal/datasource"
	"updownbot/internal/signal"
)

// SourcePCR is the name the put/call-ratio processor signs its signals with.
const SourcePCR = "OptionsPCR"

// PCRData is one computed put/call-ratio reading. Short-dated figures only
// count contracts within the expiry window.
type PCRData struct {
	Overall     float64
	Short       float64
	PutOI       float64
	CallOI      float64
	ShortPutOI  float64
	ShortCallOI float64
}

// Ratio returns the short-dated PCR, falling back to the overall ratio when no
// short-dated contracts were seen.
func (d PCRData) Ratio() float64 {
	if d.Short > 0 {
		return d.Short
	}
	return d.Overall
}

// OptionsSource supplies aggregate open interest per contract.
type OptionsSource interface {
	OptionSummaries(ctx context.Context) ([]datasource.OptionSummary, error)
}

// PutCallRatio interprets options open interest contrarian-style: heavy put
// buying is fear (bullish), heavy call buying is greed (bearish). Readings are
// cached for several minutes since open interest does not move tick-by-tick.
type PutCallRatio struct {
	source           OptionsSource
	bullishThreshold float64
	bearishThreshold float64
	maxDaysToExpiry  int
	minOpenInterest  float64
	ttl              time.Duration
	minConfidence    float64

	mu       sync.Mutex
	cached   *PCRData
	cachedAt time.Time
}

// NewPutCallRatio builds the PCR processor. Non-positive params fall back to
// the 1.20/0.70 thresholds, a 2-day expiry window, and a 5-minute cache.
func NewPutCallRatio(source OptionsSource, bullishThreshold, bearishThreshold float64, maxDaysToExpiry, cacheSecs int) *PutCallRatio {
	if bullishThreshold <= 0 {
		bullishThreshold = 1.20
	}
	if bearishThreshold <= 0 {
		bearishThreshold = 0.70
	}
	if maxDaysToExpiry <= 0 {
		maxDaysToExpiry = 2
	}
	if cacheSecs <= 0 {
		cacheSecs = 300
	}
	return &PutCallRatio{
		source:           source,
		bullishThreshold: bullishThreshold,
		bearishThreshold: bearishThreshold,
		maxDaysToExpiry:  maxDaysToExpiry,
		minOpenInterest:  100,
		ttl:              time.Duration(cacheSecs) * time.Second,
		minConfidence:    0.55,
	}
}

// Name returns the identifier for the processor.
func (p *PutCallRatio) Name() string { return SourcePCR }

// Snapshot returns the cached PCR reading, fetching a fresh one when stale.
// Returns nil when no reading is available; the caller treats that as absent
// context.
func (p *PutCallRatio) Snapshot(ctx context.Context, now time.Time) *PCRData {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && now.Sub(p.cachedAt) < p.ttl {
		return p.cached
	}
	if p.source == nil {
		return p.cached
	}

	summaries, err := p.source.OptionSummaries(ctx)
	if err != nil {
		return p.cached
	}
	data := p.compute(summaries, now)
	if data != nil {
		p.cached = data
		p.cachedAt = now
	}
	return p.cached
}

// compute aggregates put and call open interest, overall and short-dated.
func (p *PutCallRatio) compute(summaries []datasource.OptionSummary, now time.Time) *PCRData {
	var data PCRData
	for _, s := range summaries {
		if s.OpenInterest < p.minOpenInterest {
			continue
		}
		isPut := s.IsPut()
		isCall := s.IsCall()
		if !isPut && !isCall {
			continue
		}
		if isPut {
			data.PutOI += s.OpenInterest
		} else {
			data.CallOI += s.OpenInterest
		}
		dte, ok := datasource.DaysToExpiry(s.InstrumentName, now)
		if ok && dte <= p.maxDaysToExpiry {
			if isPut {
				data.ShortPutOI += s.OpenInterest
			} else {
				data.ShortCallOI += s.OpenInterest
			}
		}
	}
	if data.CallOI <= 0 {
		data.Overall = 1.0
	} else {
		data.Overall = data.PutOI / data.CallOI
	}
	if data.ShortCallOI > 0 {
		data.Short = data.ShortPutOI / data.ShortCallOI
	} else {
		data.Short = data.Overall
	}
	return &data
}

// Process emits a contrarian signal from the prefetched PCR reading, or
// nothing when the reading is absent or balanced.
func (p *PutCallRatio) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if ctx == nil || ctx.PCR == nil {
		return nil
	}
	pcr := ctx.PCR.Ratio()

	var (
		direction  signal.Direction
		strength   signal.Strength
		confidence float64
	)

	switch {
	case pcr >= p.bullishThreshold:
		direction = signal.Bullish
		extremeness := (pcr - p.bullishThreshold) / p.bullishThreshold
		confidence = math.Min(0.80, 0.57+extremeness*0.15)
		switch {
		case pcr >= 1.60:
			strength = signal.VeryStrong
		case pcr >= 1.40:
			strength = signal.Strong
		default:
			strength = signal.Moderate
		}
	case pcr <= p.bearishThreshold:
		direction = signal.Bearish
		extremeness := (p.bearishThreshold - pcr) / p.bearishThreshold
		confidence = math.Min(0.80, 0.57+extremeness*0.15)
		switch {
		case pcr <= 0.45:
			strength = signal.VeryStrong
		case pcr <= 0.55:
			strength = signal.Strong
		default:
			strength = signal.Moderate
		}
	default:
		return nil
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
			"pcr":           pcr,
			"short_put_oi":  ctx.PCR.ShortPutOI,
			"short_call_oi": ctx.PCR.ShortCallOI,
		},
	}
}
