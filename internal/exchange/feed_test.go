package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"updownbot/internal/signal"
)

func TestStubFeedEmitsQuotes(t *testing.T) {
	feed := NewFeed(ProviderStub, "", []string{"yes-token"}, zerolog.Nop(), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out := make(chan signal.QuoteTick, 8)
	go feed.Run(ctx, out)

	select {
	case quote := <-out:
		if quote.InstrumentID != "yes-token" {
			t.Fatalf("unexpected instrument %q", quote.InstrumentID)
		}
		if quote.Bid <= 0 || quote.Ask <= quote.Bid {
			t.Fatalf("quote must have a positive spread, got bid=%v ask=%v", quote.Bid, quote.Ask)
		}
	case <-ctx.Done():
		t.Fatal("no quote emitted before timeout")
	}
}

func TestSetInstrumentsDedupes(t *testing.T) {
	feed := NewFeed(ProviderStub, "", nil, zerolog.Nop())
	feed.SetInstruments([]string{"b", "a", " a ", "", "b"})

	got := feed.Instruments()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected deduped sorted list [a b], got %v", got)
	}

	// The resubscribe signal must be pending after an update.
	select {
	case <-feed.resub:
	default:
		t.Fatal("expected a resubscribe signal")
	}
}

func TestParseWSQuotes(t *testing.T) {
	payload := []byte(`[
		{"event_type":"book","asset_id":"tok1","timestamp":"1700000000000",
		 "bids":[{"price":"0.48","size":"100"},{"price":"0.52","size":"50"}],
		 "asks":[{"price":"0.55","size":"80"},{"price":"0.53","size":"20"}]},
		{"event_type":"price_change","asset_id":"tok1"},
		{"event_type":"book","asset_id":"tok2","bids":[],"asks":[{"price":"0.60","size":"5"}]}
	]`)

	quotes := parseWSQuotes(payload)
	if len(quotes) != 1 {
		t.Fatalf("expected 1 usable quote, got %d", len(quotes))
	}
	q := quotes[0]
	if q.InstrumentID != "tok1" {
		t.Fatalf("unexpected instrument %q", q.InstrumentID)
	}
	if q.Bid != 0.52 || q.Ask != 0.53 {
		t.Fatalf("expected best bid 0.52 / best ask 0.53, got %v/%v", q.Bid, q.Ask)
	}
	if q.Ts.UnixMilli() != 1700000000000 {
		t.Fatalf("timestamp not parsed: %v", q.Ts)
	}
}

func TestParseWSQuotesSingleObject(t *testing.T) {
	payload := []byte(`{"event_type":"book","asset_id":"tok3","timestamp":"bad",
		"bids":[{"price":"0.40","size":"10"}],"asks":[{"price":"0.44","size":"10"}]}`)

	quotes := parseWSQuotes(payload)
	if len(quotes) != 1 {
		t.Fatalf("expected single-object payload to parse, got %d quotes", len(quotes))
	}
	if quotes[0].Bid != 0.40 || quotes[0].Ask != 0.44 {
		t.Fatalf("unexpected quote %+v", quotes[0])
	}
	if quotes[0].Ts.IsZero() {
		t.Fatal("unparseable timestamp must fall back to wall clock")
	}

	if got := parseWSQuotes([]byte("not json")); got != nil {
		t.Fatalf("garbage payload must yield no quotes, got %v", got)
	}
}
