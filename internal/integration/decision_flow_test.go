package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/config"
	"updownbot/internal/engine"
	"updownbot/internal/exchange"
	"updownbot/internal/execution"
	"updownbot/internal/fusion"
	"updownbot/internal/history"
	"updownbot/internal/market"
	"updownbot/internal/mode"
	"updownbot/internal/paper"
	"updownbot/internal/processor"
	"updownbot/internal/risk"
	"updownbot/internal/signal"
)

// alwaysBullish stands in for the real processors so the flow is deterministic.
type alwaysBullish struct{}

func (alwaysBullish) Name() string { return "FlowSource" }

func (alwaysBullish) Process(price float64, hist []float64, ctx *processor.Context) *signal.TradingSignal {
	return &signal.TradingSignal{
		Ts:         ctx.Now,
		Source:     "FlowSource",
		Direction:  signal.Bullish,
		Strength:   signal.Strong,
		Confidence: 0.8,
		Price:      price,
	}
}

type localBuilder struct{}

func (localBuilder) Build(ctx context.Context, now time.Time, price float64, hist []float64, ticks []history.Tick, yesTokenID string) *processor.Context {
	return &processor.Context{Now: now}
}

func TestDecisionFlowRecordsPaperTrade(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &config.Config{}
	cfg.Market.IntervalSeconds = 900
	cfg.Market.PollSeconds = 1
	cfg.Gate.StabilityTicks = 3
	cfg.Gate.MinSpread = 0.001
	cfg.Gate.MaxQuote = 0.999
	// The whole epoch is tradeable so the flow does not depend on where in
	// the interval the wall clock happens to be.
	cfg.Gate.WindowStartSecs = 0
	cfg.Gate.WindowEndSecs = 900
	cfg.Gate.PriceHistorySize = 100
	cfg.Gate.TickBufferSize = 100
	// The synthetic feed walks its mid between 0.4 and 0.6, which always
	// reads as a bullish trend against these thresholds.
	cfg.Trading.TrendUpThreshold = 0.30
	cfg.Trading.TrendDownThreshold = 0.10
	cfg.Trading.PositionSizeUSD = 1
	cfg.Trading.MinLiquidity = 0.02

	now := time.Now()
	tracker := market.NewTracker("btc-updown-15m", 15*time.Minute, zerolog.Nop())
	catalog := market.GenerateCatalog("btc-updown-15m", now, 4, 15*time.Minute)
	if err := tracker.Load(catalog, now); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	ledger := paper.NewLedger(0)
	deps := engine.Deps{
		Tracker:    tracker,
		Feed:       exchange.NewFeed(exchange.ProviderStub, "", nil, zerolog.Nop(), exchange.WithPollInterval(5*time.Millisecond)),
		Fuser:      fusion.New(1, 40, nil),
		Risk:       risk.NewGate(risk.Limits{}, zerolog.Nop()),
		Mode:       mode.New(nil, "flow", true, zerolog.Nop()),
		Executor:   execution.NewLogExecutor(zerolog.Nop(), "paper"),
		Account:    paper.NewAccount(100, ledger, zerolog.Nop()),
		Builder:    localBuilder{},
		Processors: []processor.Processor{alwaysBullish{}},
	}
	eng := engine.New(cfg, deps, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	// The feed must warm the gate up and the worker must settle one trade.
	for ledger.Len() == 0 {
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for a recorded trade")
		case err := <-done:
			t.Fatalf("engine stopped early: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	trades := ledger.Snapshot()
	if trades[0].Direction != "BULLISH" {
		t.Fatalf("expected a bullish paper trade, got %s", trades[0].Direction)
	}
	if trades[0].SizeUSD != 1 {
		t.Fatalf("expected the configured $1 size, got %v", trades[0].SizeUSD)
	}

	cancel()
	<-done
}
