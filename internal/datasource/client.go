// Package datasource hosts the read-only HTTP clients supplying external
// context to the decision cycle: fear/greed sentiment, spot price, the CLOB
// order book, and options open interest. Every fetch is individually optional;
// a failure or timeout degrades to absent context, never a failed cycle.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Config carries the endpoint URLs and the per-fetch timeout.
type Config struct {
	FearGreedURL string
	SpotURL      string
	BookURL      string
	OptionsURL   string
	Currency     string
	Timeout      time.Duration
}

// Client wraps one http.Client shared across the context fetchers.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New builds a client with the configured timeout (default 5s).
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "BTC"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// getJSON issues a GET with query params and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "updownbot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
