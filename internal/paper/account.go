// Package paper simulates trading against the binary-outcome settlement model
// of the venue: every market resolves the YES token to 1.00 or 0.00, and the
// entry price is itself the probability of the UP resolution.
package paper

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/signal"
)

// Trade is one simulated fill and its resolution.
type Trade struct {
	Ts         time.Time `json:"ts"`
	Direction  string    `json:"direction"`
	SizeUSD    float64   `json:"size_usd"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnLUSD     float64   `json:"pnl_usd"`
	Outcome    string    `json:"outcome"`
	Score      float64   `json:"signal_score"`
	Confidence float64   `json:"signal_confidence"`
	Sources    string    `json:"signal_sources"`
}

// TradeRecorder captures settled paper trades for later inspection.
type TradeRecorder interface {
	Record(Trade)
}

// Account tracks virtual cash and realized PnL while trading in simulation
// mode. Resolutions are drawn from the entry price's implied probability.
type Account struct {
	mu       sync.Mutex
	cash     float64
	realized float64
	wins     int
	losses   int

	resolve  func(upProbability float64) bool
	recorder TradeRecorder
	log      zerolog.Logger
}

// NewAccount constructs an account with starting cash and an optional trade
// recorder.
func NewAccount(startingCash float64, recorder TradeRecorder, log zerolog.Logger) *Account {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Account{
		cash:     startingCash,
		resolve:  func(p float64) bool { return rng.Float64() < p },
		recorder: recorder,
		log:      log,
	}
}

// Simulate settles one paper trade immediately: the market's resolution is
// drawn with probability equal to the entry price, and the PnL follows the
// all-or-nothing payout of the bought token.
func (a *Account) Simulate(direction signal.Direction, sizeUSD, entryPrice, score, confidence float64, sources []string, now time.Time) Trade {
	a.mu.Lock()
	defer a.mu.Unlock()

	wentUp := a.resolve(entryPrice)
	exitPrice := 0.0
	if wentUp {
		exitPrice = 1.0
	}

	pnl := settle(direction, sizeUSD, entryPrice, exitPrice)

	outcome := "LOSS"
	if pnl > 0 {
		outcome = "WIN"
		a.wins++
	} else {
		a.losses++
	}
	a.cash += pnl
	a.realized += pnl

	trade := Trade{
		Ts:         now,
		Direction:  direction.String(),
		SizeUSD:    sizeUSD,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		PnLUSD:     pnl,
		Outcome:    outcome,
		Score:      score,
		Confidence: confidence,
		Sources:    strings.Join(sources, ","),
	}
	if a.recorder != nil {
		a.recorder.Record(trade)
	}
	a.log.Info().
		Str("direction", trade.Direction).
		Float64("entry", entryPrice).
		Float64("exit", exitPrice).
		Float64("pnl_usd", pnl).
		Str("outcome", outcome).
		Msg("paper trade settled")
	return trade
}

// settle computes the all-or-nothing payout. A bullish trade bought YES at the
// entry price; a bearish trade bought NO at 1-entry.
func settle(direction signal.Direction, sizeUSD, entryPrice, exitPrice float64) float64 {
	if direction == signal.Bullish {
		if entryPrice <= 0 {
			return 0
		}
		return sizeUSD * (exitPrice - entryPrice) / entryPrice
	}
	noEntry := 1 - entryPrice
	if noEntry <= 0 {
		return 0
	}
	noExit := 1 - exitPrice
	return sizeUSD * (noExit - noEntry) / noEntry
}

// Cash returns the current virtual balance.
func (a *Account) Cash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// RealizedPnL returns total settled profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realized
}

// Record reports settled wins and losses.
func (a *Account) Record() (wins, losses int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wins, a.losses
}
