package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/datasource"
	"updownbot/internal/history"
	"updownbot/internal/processor"
)

// ContextBuilder assembles the per-cycle processor context: local statistics
// derived from the price history plus the four external context sources
// fetched concurrently. Any individual fetch failing or timing out leaves its
// field absent; the cycle proceeds with reduced context.
type ContextBuilder struct {
	client  *datasource.Client
	pcr     *processor.PutCallRatio
	timeout time.Duration
	log     zerolog.Logger
}

// NewContextBuilder wires the external sources. pcr may be nil when the
// options source is not configured.
func NewContextBuilder(client *datasource.Client, pcr *processor.PutCallRatio, timeout time.Duration, log zerolog.Logger) *ContextBuilder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ContextBuilder{client: client, pcr: pcr, timeout: timeout, log: log}
}

// Build runs the concurrent fetches and returns the joined context. Each
// goroutine writes a distinct field, so no locking beyond the join is needed.
func (b *ContextBuilder) Build(ctx context.Context, now time.Time, price float64, hist []float64, ticks []history.Tick, yesTokenID string) *processor.Context {
	pctx := &processor.Context{Now: now, Ticks: ticks, YesTokenID: yesTokenID}
	localStats(pctx, price, hist)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		fg, err := b.client.FearGreedIndex(fetchCtx)
		if err != nil {
			b.log.Debug().Err(err).Msg("sentiment fetch failed")
			return
		}
		value := fg.Value
		pctx.SentimentScore = &value
		pctx.SentimentClass = fg.Classification
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		spot, err := b.client.SpotPrice(fetchCtx)
		if err != nil {
			b.log.Debug().Err(err).Msg("spot fetch failed")
			return
		}
		pctx.SpotPrice = &spot
	}()

	if yesTokenID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			book, err := b.client.OrderBook(fetchCtx, yesTokenID)
			if err != nil {
				b.log.Debug().Err(err).Msg("order book fetch failed")
				return
			}
			pctx.Book = book
		}()
	}

	if b.pcr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			pctx.PCR = b.pcr.Snapshot(fetchCtx, now)
		}()
	}

	wg.Wait()
	return pctx
}

const (
	statsWindow    = 20 // samples behind the SMA deviation and volatility
	momentumWindow = 5  // samples behind the rate-of-change
)

// localStats fills the history-derived fields: deviation of price from the
// 20-sample SMA, 5-sample rate of change, and 20-sample standard deviation.
// Fields stay zero when the history is too short.
func localStats(pctx *processor.Context, price float64, hist []float64) {
	if len(hist) >= statsWindow {
		window := hist[len(hist)-statsWindow:]
		var sum float64
		for _, p := range window {
			sum += p
		}
		mean := sum / float64(len(window))
		if mean > 0 {
			pctx.Deviation = (price - mean) / mean
		}
		var sq float64
		for _, p := range window {
			sq += (p - mean) * (p - mean)
		}
		pctx.Volatility = math.Sqrt(sq / float64(len(window)))
	}
	if len(hist) >= momentumWindow {
		old := hist[len(hist)-momentumWindow]
		if old > 0 {
			pctx.Momentum = (price - old) / old
		}
	}
}
