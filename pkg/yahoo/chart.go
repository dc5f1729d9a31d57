package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OHLCV is one daily candle.
type OHLCV struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// PriceHistory maps a YYYY-MM-DD date to its candle.
type PriceHistory map[string]OHLCV

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// PriceHistory fetches daily candles for the symbol. Empty dates
// default to a trailing 2-day window ending now; an empty series fails
// with ErrNoData.
func (c *Client) PriceHistory(ctx context.Context, symbol, startDate, endDate string) (PriceHistory, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrNoMatch)
	}

	start, end, err := c.resolveWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("period1", strconv.FormatInt(start.Unix(), 10))
	query.Set("period2", strconv.FormatInt(end.Unix(), 10))
	query.Set("interval", "1d")

	var resp chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoData, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", ErrNoData, symbol)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	history := make(PriceHistory, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		candle, ok := candleAt(quote.Open, quote.High, quote.Low, quote.Close, quote.Volume, i)
		if !ok {
			continue
		}
		date := time.Unix(ts, 0).UTC().Format(dateLayout)
		history[date] = candle
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no data found for %s in the given time period", ErrNoData, symbol)
	}
	return history, nil
}

func (c *Client) resolveWindow(startDate, endDate string) (time.Time, time.Time, error) {
	now := c.now().UTC()
	end := now
	start := now.AddDate(0, 0, -2)

	if trimmed := strings.TrimSpace(startDate); trimmed != "" {
		parsed, err := time.Parse(dateLayout, trimmed)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start_date: %w", err)
		}
		start = parsed
	}
	if trimmed := strings.TrimSpace(endDate); trimmed != "" {
		parsed, err := time.Parse(dateLayout, trimmed)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end_date: %w", err)
		}
		end = parsed
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must be after start_date", ErrNoData)
	}
	return start, end, nil
}

func candleAt(open, high, low, closePrices []*float64, volume []*int64, i int) (OHLCV, bool) {
	value := func(series []*float64) (float64, bool) {
		if i >= len(series) || series[i] == nil {
			return 0, false
		}
		return *series[i], true
	}

	o, ok := value(open)
	if !ok {
		return OHLCV{}, false
	}
	h, ok := value(high)
	if !ok {
		return OHLCV{}, false
	}
	l, ok := value(low)
	if !ok {
		return OHLCV{}, false
	}
	cl, ok := value(closePrices)
	if !ok {
		return OHLCV{}, false
	}

	var vol int64
	if i < len(volume) && volume[i] != nil {
		vol = *volume[i]
	}

	return OHLCV{Open: o, High: h, Low: l, Close: cl, Volume: vol}, true
}
