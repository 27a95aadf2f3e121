package datasource

import (
	"context"
	"fmt"
	"strconv"
)

// FearGreed is the crypto fear/greed index reading, 0 (extreme fear) to 100
// (extreme greed).
type FearGreed struct {
	Value          float64
	Classification string
}

type fearGreedResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// FearGreedIndex fetches the current sentiment reading.
func (c *Client) FearGreedIndex(ctx context.Context) (*FearGreed, error) {
	var resp fearGreedResponse
	if err := c.getJSON(ctx, c.cfg.FearGreedURL, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty fear/greed response")
	}
	value, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("parse fear/greed value: %w", err)
	}
	return &FearGreed{Value: value, Classification: resp.Data[0].Classification}, nil
}
