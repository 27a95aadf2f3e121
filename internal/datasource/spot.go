package datasource

import (
	"context"
	"fmt"
	"strconv"
)

type spotResponse struct {
	Price string `json:"price"`
}

// SpotPrice fetches the current underlying spot price in USD.
func (c *Client) SpotPrice(ctx context.Context) (float64, error) {
	var resp spotResponse
	if err := c.getJSON(ctx, c.cfg.SpotURL, nil, &resp); err != nil {
		return 0, err
	}
	px, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse spot price: %w", err)
	}
	if px <= 0 {
		return 0, fmt.Errorf("non-positive spot price %v", px)
	}
	return px, nil
}
