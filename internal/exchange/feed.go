// Package exchange hosts the quote-feed connectors that stream bid/ask
// updates for the tracked market's instruments.
package exchange

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/metrics"
	"updownbot/internal/signal"
)

const (
	// ProviderStub emits synthetic quotes (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderWS streams live book updates from the venue's public websocket.
	ProviderWS = "ws"
)

// Feed represents a pluggable quote stream implementation.
type Feed struct {
	provider     string
	wsURL        string
	log          zerolog.Logger
	pollInterval time.Duration

	mu          sync.RWMutex
	instruments []string
	resub       chan struct{}
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultPollInterval = 250 * time.Millisecond

// WithPollInterval overrides the synthetic tick cadence of the stub provider.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider. Instruments are
// token/instrument ids to subscribe to.
func NewFeed(provider, wsURL string, instruments []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		wsURL:        wsURL,
		log:          log,
		pollInterval: defaultPollInterval,
		resub:        make(chan struct{}, 1),
	}
	f.setInstruments(instruments)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetInstruments replaces the subscription list. The websocket provider
// reconnects with the new subscriptions; this is how market switches
// propagate to the feed.
func (f *Feed) SetInstruments(instruments []string) {
	f.setInstruments(instruments)
	select {
	case f.resub <- struct{}{}:
	default:
	}
}

func (f *Feed) setInstruments(instruments []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(instruments))
	for _, id := range instruments {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		unique[id] = struct{}{}
	}
	f.instruments = f.instruments[:0]
	for id := range unique {
		f.instruments = append(f.instruments, id)
	}
	sort.Strings(f.instruments)
}

// Instruments returns a copy of the current subscription list.
func (f *Feed) Instruments() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.instruments))
	copy(out, f.instruments)
	return out
}

// Run pushes quotes onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.QuoteTick) error {
	switch f.provider {
	case ProviderWS:
		return f.runWS(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// runStub walks each instrument's mid price on a slow sine around 0.5 and
// emits a fixed two-tick spread.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.QuoteTick) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	var step float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			mid := 0.5 + 0.1*math.Sin(step/40)
			for _, id := range f.Instruments() {
				quote := signal.QuoteTick{
					InstrumentID: id,
					Bid:          mid - 0.005,
					Ask:          mid + 0.005,
					Ts:           ts,
				}
				select {
				case out <- quote:
					metrics.TicksTotal.WithLabelValues(id).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
