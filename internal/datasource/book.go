package datasource

import (
	"context"
	"net/url"
	"strconv"
)

// BookLevel is one resting price level of the order book.
type BookLevel struct {
	Price float64
	Size  float64
}

// Notional returns the USD value resting at this level.
func (l BookLevel) Notional() float64 { return l.Price * l.Size }

// Book is the CLOB order book for one outcome token.
type Book struct {
	Bids []BookLevel
	Asks []BookLevel
}

type bookResponse struct {
	Bids []rawLevel `json:"bids"`
	Asks []rawLevel `json:"asks"`
}

type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func parseLevels(raw []rawLevel) []BookLevel {
	out := make([]BookLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, BookLevel{Price: price, Size: size})
	}
	return out
}

// OrderBook fetches the resting book for the given token id.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (*Book, error) {
	params := url.Values{"token_id": {tokenID}}
	var resp bookResponse
	if err := c.getJSON(ctx, c.cfg.BookURL, params, &resp); err != nil {
		return nil, err
	}
	return &Book{Bids: parseLevels(resp.Bids), Asks: parseLevels(resp.Asks)}, nil
}
