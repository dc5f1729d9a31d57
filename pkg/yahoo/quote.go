package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const maxRecommendations = 5

// Fundamentals holds headline valuation figures. Every field is
// nullable: Yahoo omits figures it does not track for a symbol.
type Fundamentals struct {
	MarketCap        *float64 `json:"market_cap"`
	PERatio          *float64 `json:"pe_ratio"`
	DividendYield    *float64 `json:"dividend_yield"`
	EPS              *float64 `json:"eps"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
}

// Recommendation is one analyst grade change.
type Recommendation struct {
	Firm      string    `json:"firm"`
	ToGrade   string    `json:"to_grade"`
	FromGrade string    `json:"from_grade,omitempty"`
	Action    string    `json:"action,omitempty"`
	Date      time.Time `json:"date"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE       rawValue `json:"trailingPE"`
				DividendYield    rawValue `json:"dividendYield"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEPS rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			UpgradeDowngradeHistory struct {
				History []struct {
					EpochGradeDate int64  `json:"epochGradeDate"`
					Firm           string `json:"firm"`
					ToGrade        string `json:"toGrade"`
					FromGrade      string `json:"fromGrade"`
					Action         string `json:"action"`
				} `json:"history"`
			} `json:"upgradeDowngradeHistory"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) (*quoteSummaryResponse, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrNoMatch)
	}

	query := url.Values{}
	query.Set("modules", modules)

	var resp quoteSummaryResponse
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), query, &resp); err != nil {
		return nil, err
	}

	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoData,
			resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: no quote summary for %s", ErrNoData, symbol)
	}
	return &resp, nil
}

// Fundamentals fetches market cap, P/E ratio, dividend yield, EPS and
// the 52-week range for the symbol.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	resp, err := c.quoteSummary(ctx, symbol, "price,summaryDetail,defaultKeyStatistics")
	if err != nil {
		return Fundamentals{}, err
	}

	result := resp.QuoteSummary.Result[0]
	return Fundamentals{
		MarketCap:        result.Price.MarketCap.Raw,
		PERatio:          result.SummaryDetail.TrailingPE.Raw,
		DividendYield:    result.SummaryDetail.DividendYield.Raw,
		EPS:              result.DefaultKeyStatistics.TrailingEPS.Raw,
		FiftyTwoWeekHigh: result.SummaryDetail.FiftyTwoWeekHigh.Raw,
		FiftyTwoWeekLow:  result.SummaryDetail.FiftyTwoWeekLow.Raw,
	}, nil
}

// Recommendations returns the 5 most recent analyst grade changes for
// the symbol, newest first. An empty slice means no coverage.
func (c *Client) Recommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	resp, err := c.quoteSummary(ctx, symbol, "upgradeDowngradeHistory")
	if err != nil {
		return nil, err
	}

	history := resp.QuoteSummary.Result[0].UpgradeDowngradeHistory.History
	recommendations := make([]Recommendation, 0, len(history))
	for _, entry := range history {
		recommendations = append(recommendations, Recommendation{
			Firm:      strings.TrimSpace(entry.Firm),
			ToGrade:   strings.TrimSpace(entry.ToGrade),
			FromGrade: strings.TrimSpace(entry.FromGrade),
			Action:    strings.TrimSpace(entry.Action),
			Date:      time.Unix(entry.EpochGradeDate, 0).UTC(),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Date.After(recommendations[j].Date)
	})
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations, nil
}
