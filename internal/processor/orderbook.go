package processor

import (
	"math"

	"updownbot/internal/datasource"
	"updownbot/internal/signal"
)

// SourceOrderBook is the name the imbalance processor signs its signals with.
const SourceOrderBook = "OrderBookImbalance"

// OrderBook detects skewed resting volume on the front-side token's book.
// Sums notional across the top levels of each side and follows the heavier
// side when the imbalance clears the threshold. Thin books are a silent skip.
type OrderBook struct {
	imbalanceThreshold float64
	wallThreshold      float64
	minBookVolume      float64
	minConfidence      float64
	topLevels          int
}

// NewOrderBook builds the imbalance processor. Non-positive params fall back
// to a 30% skew over the top 10 levels with a $50 liquidity floor.
func NewOrderBook(imbalanceThreshold, minBookVolume float64) *OrderBook {
	if imbalanceThreshold <= 0 {
		imbalanceThreshold = 0.30
	}
	if minBookVolume <= 0 {
		minBookVolume = 50
	}
	return &OrderBook{
		imbalanceThreshold: imbalanceThreshold,
		wallThreshold:      0.20,
		minBookVolume:      minBookVolume,
		minConfidence:      0.55,
		topLevels:          10,
	}
}

// Name returns the identifier for the processor.
func (p *OrderBook) Name() string { return SourceOrderBook }

// sideVolume sums USD notional across the top levels of one side.
func (p *OrderBook) sideVolume(levels []datasource.BookLevel) float64 {
	var total float64
	for i, lvl := range levels {
		if i >= p.topLevels {
			break
		}
		total += lvl.Notional()
	}
	return total
}

// hasWall reports whether a single order holds at least wallThreshold of the
// whole book's volume.
func (p *OrderBook) hasWall(levels []datasource.BookLevel, totalVolume float64) bool {
	if totalVolume <= 0 {
		return false
	}
	for i, lvl := range levels {
		if i >= p.topLevels {
			break
		}
		if lvl.Notional()/totalVolume >= p.wallThreshold {
			return true
		}
	}
	return false
}

// Process emits a signal following the heavier book side, or nothing when the
// book is absent, thin, or balanced.
func (p *OrderBook) Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal {
	if ctx == nil || ctx.Book == nil {
		return nil
	}
	book := ctx.Book

	bidVolume := p.sideVolume(book.Bids)
	askVolume := p.sideVolume(book.Asks)
	totalVolume := bidVolume + askVolume
	if totalVolume < p.minBookVolume {
		return nil
	}

	imbalance := (bidVolume - askVolume) / totalVolume
	absImb := math.Abs(imbalance)
	if absImb < p.imbalanceThreshold {
		return nil
	}

	direction := signal.Bullish
	wallSide := book.Bids
	if imbalance < 0 {
		direction = signal.Bearish
		wallSide = book.Asks
	}

	var strength signal.Strength
	switch {
	case absImb >= 0.70:
		strength = signal.VeryStrong
	case absImb >= 0.50:
		strength = signal.Strong
	case absImb >= 0.35:
		strength = signal.Moderate
	default:
		strength = signal.Weak
	}

	confidence := math.Min(0.85, 0.55+absImb*0.40)
	if p.hasWall(wallSide, totalVolume) {
		confidence = math.Min(0.90, confidence+0.05)
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
			"imbalance":      imbalance,
			"bid_volume_usd": bidVolume,
			"ask_volume_usd": askVolume,
		},
	}
}
