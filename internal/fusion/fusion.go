// Package fusion combines per-processor signals into one weighted consensus
// and adapts the per-source weights from realized trade outcomes.
package fusion

import (
	"fmt"
	"sync"
	"time"

	"updownbot/internal/signal"
)

// DefaultWeight applies to sources without a configured weight.
const DefaultWeight = 0.10

// Staleness is how old a signal may be and still count toward the consensus.
const Staleness = 5 * time.Minute

// Engine performs weighted voting over one decision cycle's signals. Weights
// are read under lock so the learner can adjust them from another goroutine.
type Engine struct {
	minSignals int
	minScore   float64

	mu      sync.RWMutex
	weights map[string]float64
}

// New builds a fusion engine. Non-positive thresholds fall back to one signal
// and a consensus score of 40.
func New(minSignals int, minScore float64, weights map[string]float64) *Engine {
	if minSignals <= 0 {
		minSignals = 1
	}
	if minScore <= 0 {
		minScore = 40
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Engine{minSignals: minSignals, minScore: minScore, weights: w}
}

// Weight returns the configured weight for a source, or the default.
func (e *Engine) Weight(source string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if w, ok := e.weights[source]; ok {
		return w
	}
	return DefaultWeight
}

// SetWeight updates one source's weight. Weights outside [0,1] are rejected.
func (e *Engine) SetWeight(source string, weight float64) error {
	if weight < 0 || weight > 1 {
		return fmt.Errorf("weight %v out of range [0,1]", weight)
	}
	e.mu.Lock()
	e.weights[source] = weight
	e.mu.Unlock()
	return nil
}

// Weights returns a copy of the current weight table.
func (e *Engine) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]float64, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

// Fuse reduces the cycle's signals to one consensus, or nil when the evidence
// is too thin. Each signal contributes weight * confidence * strength/4 to its
// side; the heavier side wins and the consensus score is its share of the
// total on a 0-100 scale. Weights are not renormalized, so a lone weak source
// still cannot dominate a missing strong one.
func (e *Engine) Fuse(signals []signal.TradingSignal, now time.Time) *signal.FusedSignal {
	if len(signals) < e.minSignals {
		return nil
	}

	recent := signals[:0:0]
	for _, s := range signals {
		if now.Sub(s.Ts) < Staleness {
			recent = append(recent, s)
		}
	}
	if len(recent) < e.minSignals {
		return nil
	}

	var bullish, bearish, confSum float64
	for _, s := range recent {
		conf := s.Confidence
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		contribution := e.Weight(s.Source) * conf * float64(s.Strength) / 4

		switch s.Direction {
		case signal.Bullish:
			bullish += contribution
		case signal.Bearish:
			bearish += contribution
		}
		confSum += s.Confidence
	}

	total := bullish + bearish
	if total < 1e-4 {
		return nil
	}

	direction := signal.Bullish
	dominant := bullish
	if bearish > bullish {
		direction = signal.Bearish
		dominant = bearish
	}

	score := dominant / total * 100
	if score < e.minScore {
		return nil
	}

	return &signal.FusedSignal{
		Ts:         now,
		Direction:  direction,
		Confidence: confSum / float64(len(recent)),
		Score:      score,
		Signals:    recent,
		Weights:    e.Weights(),
		Bullish:    bullish,
		Bearish:    bearish,
	}
}
