// Package engine runs the decision core: it consumes the quote stream, keeps
// the rolling buffers, watches epoch boundaries, and turns at most one
// qualifying tick per epoch into a trade intent.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/config"
	"updownbot/internal/exchange"
	"updownbot/internal/execution"
	"updownbot/internal/fusion"
	"updownbot/internal/history"
	"updownbot/internal/market"
	"updownbot/internal/metrics"
	"updownbot/internal/mode"
	"updownbot/internal/paper"
	"updownbot/internal/processor"
	"updownbot/internal/risk"
	"updownbot/internal/signal"
)

// Decision cycle outcomes, used as the metrics label and the skip log reason.
const (
	outcomeTrade          = "trade"
	outcomeNoEvidence     = "skip_no_evidence"
	outcomeNoConsensus    = "skip_no_consensus"
	outcomeDeadZone       = "skip_dead_zone"
	outcomeDisagreement   = "skip_disagreement"
	outcomeNoToken        = "skip_no_token"
	outcomeRiskRejected   = "risk_rejected"
	outcomeLiquidityRetry = "liquidity_retry"
	outcomeOrderRetry     = "order_retry"
)

// Builder produces the per-cycle processor context.
type Builder interface {
	Build(ctx context.Context, now time.Time, price float64, hist []float64, ticks []history.Tick, yesTokenID string) *processor.Context
}

// Deps collects the collaborators the engine coordinates. All are constructed
// once by the caller and passed in explicitly.
type Deps struct {
	Tracker    *market.Tracker
	Feed       *exchange.Feed
	Fuser      *fusion.Engine
	Learner    *fusion.Learner
	Risk       *risk.Gate
	Mode       *mode.Flag
	Executor   execution.Executor
	Account    *paper.Account
	Builder    Builder
	Processors []processor.Processor
}

// snapshot is the immutable view of shared state handed to the decision
// worker. The quote goroutine keeps writing its buffers while a cycle runs.
type snapshot struct {
	key   TradeKey
	mkt   market.Market
	price float64
	bid   float64
	ask   float64
	hist  []float64
	ticks []history.Tick
	now   time.Time
}

// Engine owns the quote loop, the boundary timer, and the decision worker.
type Engine struct {
	cfg  *config.Config
	log  zerolog.Logger
	deps Deps

	epoch time.Duration
	poll  time.Duration

	gate   *Gate
	prices *history.PriceHistory
	ticks  *history.TickBuffer

	mu       sync.Mutex
	traded   map[TradeKey]struct{}
	inFlight bool

	tradesSinceAdjust int

	snapshots chan snapshot
}

// New assembles the engine. The config must already carry its defaults.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		log:       log,
		deps:      deps,
		epoch:     time.Duration(cfg.Market.IntervalSeconds) * time.Second,
		poll:      time.Duration(cfg.Market.PollSeconds) * time.Second,
		gate:      NewGate(cfg.Gate),
		prices:    history.NewPriceHistory(cfg.Gate.PriceHistorySize),
		ticks:     history.NewTickBuffer(cfg.Gate.TickBufferSize),
		traded:    make(map[TradeKey]struct{}),
		snapshots: make(chan snapshot, 1),
	}
}

// Run blocks until the context is canceled, the feed fails, or the market
// catalog is exhausted.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quotes := make(chan signal.QuoteTick, 256)
	errs := make(chan error, 1)
	go func() {
		if err := e.deps.Feed.Run(ctx, quotes); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()
	go e.decisionWorker(ctx)

	e.syncFeed()

	boundary := time.NewTicker(e.poll)
	defer boundary.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case now := <-boundary.C:
			if err := e.checkBoundary(now); err != nil {
				return err
			}
		case q := <-quotes:
			e.onQuote(q)
		}
	}
}

// syncFeed points the feed at the current market's YES token. The venue's
// market channel subscribes and keys its events by bare token id, not the
// framework's composite instrument id.
func (e *Engine) syncFeed() {
	cur, ok := e.deps.Tracker.Current()
	if !ok {
		return
	}
	e.deps.Feed.SetInstruments([]string{cur.YesTokenID})
}

// checkBoundary polls the tracker and, on any switch, resets the per-epoch
// guards and resubscribes the feed. Stability is carried over so the new
// epoch's first tick can trade once its window opens.
func (e *Engine) checkBoundary(now time.Time) error {
	if n := e.deps.Risk.ExpireBefore(now); n > 0 {
		e.log.Info().Int("count", n).Msg("released positions of resolved markets")
	}

	kind, err := e.deps.Tracker.CheckBoundary(now)
	if err != nil {
		return err
	}
	if kind == market.SwitchNone {
		return nil
	}

	metrics.MarketSwitches.Inc()
	e.prices = history.NewPriceHistory(e.cfg.Gate.PriceHistorySize)
	e.ticks = history.NewTickBuffer(e.cfg.Gate.TickBufferSize)
	e.gate.MarkStable()

	e.mu.Lock()
	e.traded = make(map[TradeKey]struct{})
	e.mu.Unlock()

	e.syncFeed()
	return nil
}

// onQuote is the single-threaded quote handler: validate, update buffers, and
// trigger a decision cycle when the epoch's window is open and untraded.
func (e *Engine) onQuote(q signal.QuoteTick) {
	cur, ok := e.deps.Tracker.Current()
	if !ok || e.deps.Tracker.Waiting() {
		return
	}
	if q.InstrumentID != cur.YesTokenID {
		return
	}
	if !e.gate.Observe(q) {
		metrics.TicksRejected.Inc()
		return
	}

	mid := q.Mid()
	e.prices.Push(mid)
	e.ticks.Push(history.Tick{Ts: q.Ts, Price: mid})

	if !e.gate.Stable() || !e.gate.InWindow(cur, q.Ts) {
		return
	}

	key := TradeKeyFor(cur, q.Ts, e.epoch)
	if !e.claim(key) {
		return
	}
	e.snapshots <- snapshot{
		key:   key,
		mkt:   cur,
		price: mid,
		bid:   q.Bid,
		ask:   q.Ask,
		hist:  e.prices.Snapshot(),
		ticks: e.ticks.Snapshot(),
		now:   q.Ts,
	}
}

// claim marks the key in flight unless it already traded or a cycle is
// running. The worker releases the claim via finish.
func (e *Engine) claim(key TradeKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	if _, done := e.traded[key]; done {
		return false
	}
	e.inFlight = true
	return true
}

// finish releases the in-flight claim, consuming the key unless the cycle
// ended in a retry-eligible rejection.
func (e *Engine) finish(key TradeKey, consumed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if consumed {
		e.traded[key] = struct{}{}
	}
	e.inFlight = false
}

// decisionWorker is the long-lived loop that runs cycles off the quote path.
func (e *Engine) decisionWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-e.snapshots:
			outcome, consumed := e.runCycle(ctx, snap)
			metrics.DecisionsTotal.WithLabelValues(outcome).Inc()
			e.finish(snap.key, consumed)
			e.log.Info().Str("slug", snap.mkt.Slug).Str("outcome", outcome).
				Float64("price", snap.price).Msg("decision cycle finished")
		}
	}
}

// runCycle executes one full decision sequence. The returned flag reports
// whether the TradeKey is consumed; only liquidity and order rejections leave
// the epoch eligible to retry on the next tick.
func (e *Engine) runCycle(ctx context.Context, snap snapshot) (string, bool) {
	simulation := e.deps.Mode.Simulation(ctx)

	pctx := e.deps.Builder.Build(ctx, snap.now, snap.price, snap.hist, snap.ticks, snap.mkt.YesTokenID)

	var signals []signal.TradingSignal
	for _, proc := range e.deps.Processors {
		s := proc.Process(snap.price, snap.hist, pctx)
		if s == nil {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(s.Source, s.Direction.String()).Inc()
		signals = append(signals, *s)
	}
	if len(signals) == 0 {
		return outcomeNoEvidence, true
	}

	fused := e.deps.Fuser.Fuse(signals, snap.now)
	if fused == nil {
		return outcomeNoConsensus, true
	}

	// Late in the epoch the market's own price is the strongest predictor;
	// it dictates direction and the fused signal only confirms.
	var direction signal.Direction
	var confidence float64
	switch {
	case snap.price > e.cfg.Trading.TrendUpThreshold:
		direction = signal.Bullish
		confidence = snap.price
	case snap.price < e.cfg.Trading.TrendDownThreshold:
		direction = signal.Bearish
		confidence = 1 - snap.price
	default:
		return outcomeDeadZone, true
	}

	if fused.Direction != direction {
		if !e.cfg.Trading.AllowDisagreement {
			return outcomeDisagreement, true
		}
		e.log.Warn().Stringer("trend", direction).Stringer("fused", fused.Direction).
			Msg("consensus disagrees with trend, proceeding on trend")
	}

	size := e.cfg.Trading.PositionSizeUSD
	if err := e.deps.Risk.Validate(size, snap.now); err != nil {
		e.log.Warn().Err(err).Msg("risk gate rejected trade")
		return outcomeRiskRejected, true
	}

	// Best price on the side an IOC buy would cross: bullish lifts the YES
	// ask, bearish buys NO whose ask mirrors the YES bid. Either side at
	// pennies means the book is essentially empty and the order would be
	// rejected; the next tick may look better.
	bestPrice := snap.ask
	if direction == signal.Bearish {
		bestPrice = snap.bid
	}
	if bestPrice <= e.cfg.Trading.MinLiquidity {
		return outcomeLiquidityRetry, false
	}

	instrumentID, tokenID := snap.mkt.YesInstrumentID, snap.mkt.YesTokenID
	if direction == signal.Bearish {
		if !snap.mkt.HasNoToken() {
			e.log.Warn().Str("slug", snap.mkt.Slug).Msg("no NO token discovered, skipping bearish trade")
			return outcomeNoToken, true
		}
		instrumentID = snap.mkt.NoInstrumentID
		tokenID = market.TokenID(instrumentID)
	}

	if simulation {
		e.simulate(direction, size, snap, fused, confidence)
		return outcomeTrade, true
	}

	intent := execution.NewIntent(instrumentID, tokenID, direction, size, snap.price, snap.now)
	if err := e.deps.Executor.Submit(ctx, intent); err != nil {
		e.log.Warn().Err(err).Str("client_id", intent.ClientID).Msg("order rejected")
		return outcomeOrderRetry, false
	}
	e.deps.Risk.Open(risk.Position{
		ID:         intent.ClientID,
		SizeUSD:    size,
		EntryPrice: snap.price,
		Direction:  direction,
		OpenedAt:   snap.now,
		ExpiresAt:  snap.mkt.End,
	})
	return outcomeTrade, true
}

// simulate settles the trade on the paper account and feeds the realized
// result back into risk tracking and weight adaptation.
func (e *Engine) simulate(direction signal.Direction, size float64, snap snapshot, fused *signal.FusedSignal, confidence float64) {
	sources := make([]string, 0, len(fused.Signals))
	for _, s := range fused.Signals {
		sources = append(sources, s.Source)
	}

	trade := e.deps.Account.Simulate(direction, size, snap.price, fused.Score, confidence, sources, snap.now)
	e.deps.Risk.RecordSettlement(trade.PnLUSD)

	if e.deps.Learner == nil {
		return
	}
	e.deps.Learner.Record(fusion.Outcome{Sources: sources, PnLUSD: trade.PnLUSD})
	e.tradesSinceAdjust++
	if interval := e.cfg.Learning.TriggerInterval; interval > 0 && e.tradesSinceAdjust >= interval {
		e.tradesSinceAdjust = 0
		e.deps.Learner.Adjust()
	}
}
