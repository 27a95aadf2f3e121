package fusion

import (
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// Outcome is one settled trade attributed to the sources whose signals backed
// it.
type Outcome struct {
	Sources []string
	PnLUSD  float64
}

type sourceStats struct {
	trades   int
	wins     int
	totalPnL float64
}

// Learner nudges fusion weights toward each source's realized performance.
// Adjustments are bounded exponential smoothing: the weight moves a fraction
// of the distance toward a target built from win rate and profitability, and
// is clamped to a configured band so no source is ever silenced or dominant.
type Learner struct {
	engine    *Engine
	rate      float64
	minTrades int
	minWeight float64
	maxWeight float64
	log       zerolog.Logger

	mu    sync.Mutex
	stats map[string]*sourceStats
}

// NewLearner builds a learner bound to a fusion engine. Non-positive params
// fall back to a 0.1 rate, 10-trade floor, and the [0.05, 0.50] weight band.
func NewLearner(engine *Engine, rate float64, minTrades int, minWeight, maxWeight float64, log zerolog.Logger) *Learner {
	if rate <= 0 {
		rate = 0.1
	}
	if minTrades <= 0 {
		minTrades = 10
	}
	if minWeight <= 0 {
		minWeight = 0.05
	}
	if maxWeight <= 0 {
		maxWeight = 0.50
	}
	return &Learner{
		engine:    engine,
		rate:      rate,
		minTrades: minTrades,
		minWeight: minWeight,
		maxWeight: maxWeight,
		log:       log,
		stats:     make(map[string]*sourceStats),
	}
}

// Record books one settled trade against every contributing source.
func (l *Learner) Record(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, source := range o.Sources {
		st := l.stats[source]
		if st == nil {
			st = &sourceStats{}
			l.stats[source] = st
		}
		st.trades++
		if o.PnLUSD > 0 {
			st.wins++
		}
		st.totalPnL += o.PnLUSD
	}
}

// Adjust recomputes weights for every source with enough settled trades and
// applies them to the engine. Returns the weights that changed.
func (l *Learner) Adjust() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := make(map[string]float64)
	for source, st := range l.stats {
		if st.trades < l.minTrades {
			continue
		}

		winRate := float64(st.wins) / float64(st.trades)
		pnlScore := math.Min(1, math.Max(0, st.totalPnL/100))
		target := winRate*0.6 + pnlScore*0.4

		current := l.engine.Weight(source)
		next := current + (target-current)*l.rate
		next = math.Max(l.minWeight, math.Min(l.maxWeight, next))

		if next == current {
			continue
		}
		if err := l.engine.SetWeight(source, next); err != nil {
			continue
		}
		changed[source] = next
		l.log.Info().
			Str("source", source).
			Float64("win_rate", winRate).
			Float64("old_weight", current).
			Float64("new_weight", next).
			Msg("adjusted fusion weight")
	}
	return changed
}
