package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"updownbot/internal/metrics"
	"updownbot/internal/signal"
)

type wsSubscribe struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

type wsEvent struct {
	EventType string    `json:"event_type"`
	AssetID   string    `json:"asset_id"`
	Bids      []wsLevel `json:"bids"`
	Asks      []wsLevel `json:"asks"`
	Timestamp string    `json:"timestamp"`
}

type wsLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func (f *Feed) runWS(ctx context.Context, out chan<- signal.QuoteTick) error {
	if f.wsURL == "" {
		return fmt.Errorf("websocket feed requires a url")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := f.consumeWS(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			f.log.Warn().Err(err).Msg("quote feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		// Clean close means a resubscribe was requested; reconnect at once.
		backoff = time.Second
	}
}

func (f *Feed) consumeWS(ctx context.Context, out chan<- signal.QuoteTick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	instruments := f.Instruments()
	if err := conn.WriteJSON(wsSubscribe{AssetIDs: instruments, Type: "market"}); err != nil {
		return err
	}
	f.log.Info().Strs("instruments", instruments).Msg("connected quote feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	// Pings keep the connection alive; a resubscribe request or context
	// cancellation forces the read loop to unblock by closing the conn.
	var resubbed atomic.Bool
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("quote feed ping failed")
					return
				}
			case <-f.resub:
				resubbed.Store(true)
				conn.Close()
				return
			case <-watchCtx.Done():
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A forced close for resubscription surfaces as a read error;
			// report success so the caller reconnects without backoff.
			if resubbed.Load() {
				return nil
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		for _, quote := range parseWSQuotes(payload) {
			select {
			case out <- quote:
				metrics.TicksTotal.WithLabelValues(quote.InstrumentID).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// parseWSQuotes extracts best bid/ask quotes from a book-event payload. The
// venue sends either a single event object or an array of them.
func parseWSQuotes(payload []byte) []signal.QuoteTick {
	var events []wsEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		var single wsEvent
		if err := json.Unmarshal(payload, &single); err != nil {
			return nil
		}
		events = []wsEvent{single}
	}

	var quotes []signal.QuoteTick
	for _, ev := range events {
		if ev.EventType != "book" || ev.AssetID == "" {
			continue
		}
		bid, okBid := bestPrice(ev.Bids, true)
		ask, okAsk := bestPrice(ev.Asks, false)
		if !okBid || !okAsk {
			continue
		}
		quotes = append(quotes, signal.QuoteTick{
			InstrumentID: ev.AssetID,
			Bid:          bid,
			Ask:          ask,
			Ts:           parseWSTimestamp(ev.Timestamp),
		})
	}
	return quotes
}

// bestPrice returns the highest bid or lowest ask across the levels.
func bestPrice(levels []wsLevel, highest bool) (float64, bool) {
	best := 0.0
	found := false
	for _, lvl := range levels {
		px, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		if !found || (highest && px > best) || (!highest && px < best) {
			best = px
			found = true
		}
	}
	return best, found
}

func parseWSTimestamp(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
