// Package market owns the catalog of rotating fixed-duration binary markets
// and decides which one is live.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNoMarkets means the catalog scan found zero qualifying markets.
	// This is fatal; the supervisor is expected to restart and rescan.
	ErrNoMarkets = errors.New("market: no qualifying markets in catalog")
	// ErrCatalogExhausted means the current market ended and no later market
	// remains. Also fatal for the same reason.
	ErrCatalogExhausted = errors.New("market: catalog exhausted, no further markets")
)

// Instrument is the minimal catalog view the external trading framework
// exposes for one outcome token.
type Instrument struct {
	ID   string
	Slug string
}

// Market is one fixed-duration binary market. Immutable once discovered.
// YES and NO are two instruments sharing the same slug; the first instrument
// seen for a slug becomes YES, the second NO.
type Market struct {
	Slug            string
	StartTs         int64 // unix start, parsed from the slug
	Start           time.Time
	End             time.Time
	YesInstrumentID string
	NoInstrumentID  string
	YesTokenID      string
}

// HasNoToken reports whether the complementary NO instrument was discovered.
func (m Market) HasNoToken() bool { return m.NoInstrumentID != "" }

// SwitchKind classifies what the boundary timer observed.
type SwitchKind int

const (
	// SwitchNone means nothing happened this poll.
	SwitchNone SwitchKind = iota
	// SwitchOpened means the market we were waiting on has opened.
	SwitchOpened
	// SwitchAdvanced means the current market ended and the next one is live.
	SwitchAdvanced
	// SwitchWaiting means the current market ended and the next one has not
	// opened yet; trading stays blocked until it does.
	SwitchWaiting
)

// Tracker scans the instrument catalog, pairs YES/NO tokens, and tracks which
// market is current. All methods are called from the boundary timer goroutine
// or, for reads, behind the engine's snapshotting; the tracker itself holds no
// locks.
type Tracker struct {
	log        zerolog.Logger
	slugPrefix string
	interval   time.Duration

	markets    []Market
	current    int
	waiting    bool
	nextSwitch time.Time
}

// NewTracker builds a tracker for markets whose slug carries the given prefix
// (e.g. "btc-updown-15m") and run for the given interval.
func NewTracker(slugPrefix string, interval time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{
		log:        log,
		slugPrefix: strings.ToLower(slugPrefix),
		interval:   interval,
		current:    -1,
	}
}

// parseStartTs extracts the unix start timestamp encoded as the slug's last
// dash-separated token. The slug is authoritative: the instrument's nominal
// expiry field can be date-only and loses intraday precision.
func parseStartTs(slug string) (int64, error) {
	idx := strings.LastIndex(slug, "-")
	if idx < 0 || idx == len(slug)-1 {
		return 0, fmt.Errorf("slug %q has no timestamp part", slug)
	}
	ts, err := strconv.ParseInt(slug[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("slug %q timestamp: %w", slug, err)
	}
	return ts, nil
}

// TokenID extracts the CLOB token id from an instrument id of the form
// {condition_id}-{token_id}[.VENUE]. The order-book endpoint only accepts the
// trailing token id.
func TokenID(instrumentID string) string {
	id := instrumentID
	if dot := strings.IndexByte(id, '.'); dot >= 0 {
		id = id[:dot]
	}
	if dash := strings.LastIndex(id, "-"); dash >= 0 {
		id = id[dash+1:]
	}
	return id
}

// Load scans the catalog, pairs outcome tokens by slug, sorts by start time,
// and selects the current market. Markets that already ended are dropped.
// Returns ErrNoMarkets when nothing qualifies.
func (t *Tracker) Load(catalog []Instrument, now time.Time) error {
	bySlug := make(map[string]int)
	markets := make([]Market, 0, len(catalog)/2)

	for _, inst := range catalog {
		slug := strings.ToLower(inst.Slug)
		if !strings.HasPrefix(slug, t.slugPrefix) {
			continue
		}
		startTs, err := parseStartTs(slug)
		if err != nil {
			t.log.Debug().Str("slug", slug).Msg("skipping unparsable slug")
			continue
		}
		end := time.Unix(startTs, 0).UTC().Add(t.interval)
		if !end.After(now) {
			continue // already resolved, never revisited
		}

		if i, seen := bySlug[slug]; seen {
			// Second token for this slug is the NO side.
			if markets[i].NoInstrumentID == "" {
				markets[i].NoInstrumentID = inst.ID
			}
			continue
		}
		bySlug[slug] = len(markets)
		markets = append(markets, Market{
			Slug:            slug,
			StartTs:         startTs,
			Start:           time.Unix(startTs, 0).UTC(),
			End:             end,
			YesInstrumentID: inst.ID,
			YesTokenID:      TokenID(inst.ID),
		})
	}

	if len(markets) == 0 {
		return ErrNoMarkets
	}

	sort.Slice(markets, func(i, j int) bool { return markets[i].StartTs < markets[j].StartTs })
	t.markets = markets
	t.current = -1
	t.waiting = false

	for i, m := range markets {
		if !m.Start.After(now) && m.End.After(now) {
			t.current = i
			t.nextSwitch = m.End
			t.log.Info().Str("slug", m.Slug).Time("ends", m.End).Int("index", i).Msg("current market selected")
			return nil
		}
	}

	// No live market: wait for the nearest future one.
	for i, m := range markets {
		if m.Start.After(now) {
			t.current = i
			t.waiting = true
			t.nextSwitch = m.Start
			t.log.Info().Str("slug", m.Slug).Time("opens", m.Start).Msg("waiting for market open")
			return nil
		}
	}
	return ErrNoMarkets
}

// Current returns the tracked market (live, or the one being waited on).
func (t *Tracker) Current() (Market, bool) {
	if t.current < 0 || t.current >= len(t.markets) {
		return Market{}, false
	}
	return t.markets[t.current], true
}

// Waiting reports whether trading is blocked until the tracked market opens.
func (t *Tracker) Waiting() bool { return t.waiting }

// Markets returns the sorted catalog view.
func (t *Tracker) Markets() []Market { return t.markets }

// CheckBoundary is polled by the low-frequency timer (~10s). It detects the
// waited-for market opening or the current market ending and advances state.
// The caller resets its stability/trade guards on any non-SwitchNone result.
// Returns ErrCatalogExhausted when the current market ended with nothing left.
func (t *Tracker) CheckBoundary(now time.Time) (SwitchKind, error) {
	if t.current < 0 || now.Before(t.nextSwitch) {
		return SwitchNone, nil
	}

	if t.waiting {
		// The future market we were waiting on has opened.
		t.waiting = false
		cur := t.markets[t.current]
		t.nextSwitch = cur.End
		t.log.Info().Str("slug", cur.Slug).Time("ends", cur.End).Msg("waited market now open")
		return SwitchOpened, nil
	}

	next := t.current + 1
	if next >= len(t.markets) {
		return SwitchNone, ErrCatalogExhausted
	}

	t.current = next
	m := t.markets[next]
	if m.Start.After(now) {
		t.waiting = true
		t.nextSwitch = m.Start
		t.log.Info().Str("slug", m.Slug).Time("opens", m.Start).Msg("next market not yet open, waiting")
		return SwitchWaiting, nil
	}
	t.nextSwitch = m.End
	t.log.Info().Str("slug", m.Slug).Time("ends", m.End).Msg("switched to next market")
	return SwitchAdvanced, nil
}
