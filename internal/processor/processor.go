// Package processor contains the six independent signal processors feeding the
// fusion engine. Each consumes the current market price, a snapshot of recent
// price history, and an optional context bag, and emits zero or one signal per
// decision cycle. Missing context is a legitimate "no signal" outcome, never an
// error.
package processor

import (
	"time"

	"updownbot/internal/datasource"
	"updownbot/internal/history"
	"updownbot/internal/signal"
)

// Context carries the external inputs fetched once per decision cycle. Every
// pointer field is optional; processors that need an absent field return nil.
type Context struct {
	Now time.Time

	// Local stats computed from the price history snapshot.
	Deviation  float64 // distance of current price from SMA-20
	Momentum   float64 // 5-sample rate of change of the market price
	Volatility float64 // stddev of the last 20 samples

	SentimentScore *float64 // fear/greed index 0..100
	SentimentClass string

	SpotPrice *float64 // underlying spot in USD

	Book       *datasource.Book // CLOB book for the front-side token
	YesTokenID string

	Ticks []history.Tick // tick buffer snapshot, time-ordered

	PCR *PCRData // prefetched options put/call ratio
}

// Processor is the contract every signal processor implements.
type Processor interface {
	Name() string
	Process(price float64, hist []float64, ctx *Context) *signal.TradingSignal
}
