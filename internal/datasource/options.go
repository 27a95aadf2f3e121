package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OptionSummary is one option contract's aggregate open interest.
type OptionSummary struct {
	InstrumentName string  `json:"instrument_name"`
	OpenInterest   float64 `json:"open_interest"`
}

// IsPut reports whether the contract is a put.
func (o OptionSummary) IsPut() bool { return strings.HasSuffix(o.InstrumentName, "-P") }

// IsCall reports whether the contract is a call.
func (o OptionSummary) IsCall() bool { return strings.HasSuffix(o.InstrumentName, "-C") }

type optionsResponse struct {
	Result []OptionSummary `json:"result"`
}

// OptionSummaries fetches aggregate open interest for every active option
// contract of the configured currency.
func (c *Client) OptionSummaries(ctx context.Context) ([]OptionSummary, error) {
	params := url.Values{"currency": {c.cfg.Currency}, "kind": {"option"}}
	var resp optionsResponse
	if err := c.getJSON(ctx, c.cfg.OptionsURL, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("empty options response")
	}
	return resp.Result, nil
}

var optionMonths = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// DaysToExpiry parses the expiry encoded in an option instrument name of the
// form CCY-DDMMMYY-STRIKE-{P|C} (e.g. BTC-20FEB26-95000-P) and returns whole
// days from now, floored at zero.
func DaysToExpiry(instrumentName string, now time.Time) (int, bool) {
	parts := strings.Split(instrumentName, "-")
	if len(parts) < 3 {
		return 0, false
	}
	raw := strings.ToUpper(parts[1])
	if len(raw) < 6 || len(raw) > 7 {
		return 0, false
	}
	dayLen := len(raw) - 5
	day, err := strconv.Atoi(raw[:dayLen])
	if err != nil {
		return 0, false
	}
	month, ok := optionMonths[raw[dayLen:dayLen+3]]
	if !ok {
		return 0, false
	}
	year, err := strconv.Atoi(raw[dayLen+3:])
	if err != nil {
		return 0, false
	}
	expiry := time.Date(2000+year, month, day, 8, 0, 0, 0, time.UTC)
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}
