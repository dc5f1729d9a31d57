package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/stocklens/stocklens/agent/contract"
)

const (
	ToolResolveTicker   = "resolve_ticker"
	ToolStockData       = "fetch_stock_data"
	ToolFundamentals    = "fetch_stock_fundamentals"
	ToolRecommendations = "fetch_analyst_recommendations"
	ToolStockNews       = "fetch_stock_news"
)

var catalog = []contractx.ToolDescriptor{
	{
		Name:        ToolResolveTicker,
		Description: "Convert a company name or acronym group to its stock ticker symbol(s).",
		Parameters: map[string]contractx.Param{
			"company_name": {Type: "string", Description: "The full company name (e.g., 'Microsoft')."},
		},
		Required: []string{"company_name"},
	},
	{
		Name:        ToolStockData,
		Description: "Fetch historical stock price data for a given ticker symbol.",
		Parameters: map[string]contractx.Param{
			"symbol":     {Type: "string", Description: "Ticker symbol (e.g., 'MSFT')."},
			"start_date": {Type: "string", Description: "Start date, YYYY-MM-DD."},
			"end_date":   {Type: "string", Description: "End date, YYYY-MM-DD."},
		},
		Required: []string{"symbol"},
	},
	{
		Name:        ToolFundamentals,
		Description: "Fetch stock fundamentals like Market Cap, P/E Ratio, and Dividend Yield.",
		Parameters: map[string]contractx.Param{
			"symbol": {Type: "string", Description: "Ticker symbol."},
		},
		Required: []string{"symbol"},
	},
	{
		Name:        ToolRecommendations,
		Description: "Fetch the latest analyst recommendations for a given ticker symbol.",
		Parameters: map[string]contractx.Param{
			"symbol": {Type: "string", Description: "Ticker symbol."},
		},
		Required: []string{"symbol"},
	},
	{
		Name:        ToolStockNews,
		Description: "Fetch recent news for a ticker symbol and analyze its sentiment.",
		Parameters: map[string]contractx.Param{
			"symbol":    {Type: "string", Description: "Ticker symbol."},
			"days_back": {Type: "integer", Description: "Lookback window in days, default 7."},
		},
		Required: []string{"symbol"},
	},
}

var byName = func() map[string]contractx.ToolDescriptor {
	m := make(map[string]contractx.ToolDescriptor, len(catalog))
	for _, d := range catalog {
		m[d.Name] = d
	}
	return m
}()

// Catalog returns the static tool descriptors in declaration order.
// The returned slice is shared and must not be mutated.
func Catalog() []contractx.ToolDescriptor {
	return catalog
}

// ValidateCall checks the call against the catalog and decodes its
// arguments. Unknown names fail with ErrUnknownTool, absent or blank
// required arguments with ErrMissingArgument.
func ValidateCall(call contractx.ToolCall) (map[string]any, error) {
	descriptor, ok := byName[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, call.Name)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("%w: invalid arguments for tool=%s: %v", contractx.ErrValidation, call.Name, err)
		}
	}

	for _, required := range descriptor.Required {
		value, present := args[required]
		if !present {
			return nil, fmt.Errorf("%w: tool=%s argument=%s", contractx.ErrMissingArgument, call.Name, required)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: tool=%s argument=%s is blank", contractx.ErrMissingArgument, call.Name, required)
		}
	}

	return args, nil
}

// StringArg returns the trimmed string value for key, or "" when the
// argument is absent or not a string.
func StringArg(args map[string]any, key string) string {
	if value, ok := args[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// IntArg returns the integer value for key, accepting the float64 form
// JSON decoding produces, or fallback when absent or unusable.
func IntArg(args map[string]any, key string, fallback int) int {
	switch value := args[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
