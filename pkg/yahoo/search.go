package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Ticker lists for common big-tech acronyms that the search endpoint
// does not resolve on its own.
var acronymGroups = map[string][]string{
	"FAANG":   {"META", "AAPL", "AMZN", "NFLX", "GOOG"},
	"FAAMG":   {"FB", "AAPL", "AMZN", "MSFT", "GOOG"},
	"MAMAA":   {"META", "AAPL", "MSFT", "AMZN", "GOOG"},
	"ANTMAMA": {"AAPL", "NVDA", "TSLA", "META", "AMZN", "MSFT", "GOOG"},
	"GAFM":    {"GOOG", "AMZN", "FB", "MSFT"},
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
	} `json:"quotes"`
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// NewsItem is one article from the news feed. PublishedAt is nil when
// the provider did not supply a usable timestamp.
type NewsItem struct {
	Title       string     `json:"title"`
	Publisher   string     `json:"publisher,omitempty"`
	Link        string     `json:"link,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ResolveTicker converts a company name or acronym group to one or more
// ticker symbols. Unresolvable names fail with ErrNoMatch, carrying a
// "did you mean" hint when the search produced near-misses.
func (c *Client) ResolveTicker(ctx context.Context, companyName string) ([]string, error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return nil, fmt.Errorf("%w: empty company name", ErrNoMatch)
	}

	if group, ok := acronymGroups[strings.ToUpper(name)]; ok {
		return append([]string(nil), group...), nil
	}

	query := url.Values{}
	query.Set("q", name)
	query.Set("quotesCount", "5")
	query.Set("newsCount", "0")

	var resp searchResponse
	if err := c.getJSON(ctx, "/v1/finance/search", query, &resp); err != nil {
		return nil, err
	}

	var suggestion string
	for _, quote := range resp.Quotes {
		if symbol := strings.TrimSpace(quote.Symbol); symbol != "" {
			return []string{symbol}, nil
		}
		if suggestion == "" {
			suggestion = strings.TrimSpace(quote.LongName)
			if suggestion == "" {
				suggestion = strings.TrimSpace(quote.ShortName)
			}
		}
	}

	if suggestion != "" {
		return nil, fmt.Errorf("%w: no ticker found for %q, did you mean %q", ErrNoMatch, name, suggestion)
	}
	return nil, fmt.Errorf("%w: no ticker found for %q", ErrNoMatch, name)
}

// News returns articles for the symbol published within the trailing
// daysBack window (default 7 days). Articles without a usable timestamp
// are retained rather than dropped.
func (c *Client) News(ctx context.Context, symbol string, daysBack int) ([]NewsItem, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrNoMatch)
	}
	if daysBack <= 0 {
		daysBack = 7
	}

	query := url.Values{}
	query.Set("q", symbol)
	query.Set("quotesCount", "0")
	query.Set("newsCount", strconv.Itoa(20))

	var resp searchResponse
	if err := c.getJSON(ctx, "/v1/finance/search", query, &resp); err != nil {
		return nil, err
	}

	cutoff := c.now().AddDate(0, 0, -daysBack)
	items := make([]NewsItem, 0, len(resp.News))
	for _, article := range resp.News {
		item := NewsItem{
			Title:     strings.TrimSpace(article.Title),
			Publisher: strings.TrimSpace(article.Publisher),
			Link:      strings.TrimSpace(article.Link),
		}
		if article.ProviderPublishTime > 0 {
			published := time.Unix(article.ProviderPublishTime, 0).UTC()
			if published.Before(cutoff) {
				continue
			}
			item.PublishedAt = &published
		}
		items = append(items, item)
	}

	return items, nil
}
