// Package execution defines the order-intent boundary between the decision
// core and the external trading framework that owns order submission.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/metrics"
	"updownbot/internal/signal"
)

// Side enumerates order directions. On a binary market both directions are
// buys: bullish buys the YES token, bearish buys the NO token, so every
// intent this package produces carries Buy.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// TimeInForce enumerates supported order lifetimes.
type TimeInForce string

// IOC fills immediately against resting liquidity or dies; the decision
// pipeline retries on the next tick rather than leaving a resting order.
const IOC TimeInForce = "IOC"

// ErrNoMatch reports an IOC order that found no resting liquidity. The caller
// treats this as retryable within the same trade window.
var ErrNoMatch = errors.New("no liquidity matched")

// OrderIntent is one fully-specified placement request.
type OrderIntent struct {
	InstrumentID string
	TokenID      string
	Side         Side
	TIF          TimeInForce
	SizeUSD      float64
	Price        float64 // market price at decision time, informational
	Direction    signal.Direction
	ClientID     string
	Ts           time.Time
}

// NewIntent builds a BUY IOC intent for the given side's token.
func NewIntent(instrumentID, tokenID string, direction signal.Direction, sizeUSD, price float64, ts time.Time) OrderIntent {
	return OrderIntent{
		InstrumentID: instrumentID,
		TokenID:      tokenID,
		Side:         Buy,
		TIF:          IOC,
		SizeUSD:      sizeUSD,
		Price:        price,
		Direction:    direction,
		ClientID:     fmt.Sprintf("updown-%d-%d", ts.UnixMilli(), direction),
		Ts:           ts,
	}
}

// Fill is one executed (or simulated) order, as recorded downstream.
type Fill struct {
	Ts           time.Time `json:"ts"`
	InstrumentID string    `json:"instrument_id"`
	Side         Side      `json:"side"`
	SizeUSD      float64   `json:"size_usd"`
	Price        float64   `json:"price"`
}

// Executor submits order intents to a venue.
type Executor interface {
	Submit(ctx context.Context, intent OrderIntent) error
}

// LogExecutor logs intents without touching a venue. It stands in wherever no
// live adapter is wired, and doubles as the audit trail in front of one.
type LogExecutor struct {
	log  zerolog.Logger
	mode string
}

// NewLogExecutor wraps a zerolog logger; mode labels the orders metric.
func NewLogExecutor(log zerolog.Logger, mode string) *LogExecutor {
	if mode == "" {
		mode = "paper"
	}
	return &LogExecutor{log: log, mode: mode}
}

// Submit records the intent in the log and metrics.
func (e *LogExecutor) Submit(ctx context.Context, intent OrderIntent) error {
	metrics.OrdersTotal.WithLabelValues(intent.TokenID, e.mode).Inc()
	e.log.Info().
		Str("instrument", intent.InstrumentID).
		Str("token", intent.TokenID).
		Str("side", string(intent.Side)).
		Str("tif", string(intent.TIF)).
		Float64("size_usd", intent.SizeUSD).
		Float64("px", intent.Price).
		Str("client_id", intent.ClientID).
		Msg("submit order")
	return nil
}
