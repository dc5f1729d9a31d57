package contract

import (
	"strings"

	"github.com/stocklens/stocklens/pkg/yahoo"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation transcript driving the chat
// model. Tool-result messages carry the originating call's ID and name.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is one request from the model to execute a named tool.
// Arguments is the raw JSON object emitted by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Param describes one tool parameter.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ToolDescriptor is a named capability advertised to the chat model.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]Param
	Required    []string
}

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

type PriceMovement string

const (
	MovementUp      PriceMovement = "up"
	MovementDown    PriceMovement = "down"
	MovementNeutral PriceMovement = "neutral"
)

type Valuation string

const (
	ValuationOvervalued  Valuation = "overvalued"
	ValuationUndervalued Valuation = "undervalued"
	ValuationFair        Valuation = "fairly_valued"
)

// SentimentVerdict is the structured outcome of news sentiment analysis.
type SentimentVerdict struct {
	Sentiment     Sentiment     `json:"sentiment"`
	PriceMovement PriceMovement `json:"price_movement"`
	Valuation     Valuation     `json:"valuation"`
}

// NewsSentiment wraps the verdict for one symbol. Articles is populated
// only when raw article retention is enabled.
type NewsSentiment struct {
	Analysis SentimentVerdict `json:"analysis"`
	Articles []yahoo.NewsItem `json:"articles,omitempty"`
}

// Analysis is the per-run accumulator merging every tool result into
// one response structure. A later result for the same category and
// symbol overwrites the earlier one.
type Analysis struct {
	Symbols         []string                           `json:"symbols,omitempty"`
	StockData       map[string]yahoo.PriceHistory      `json:"stock_data,omitempty"`
	AIInsights      map[string]string                  `json:"ai_insights,omitempty"`
	Fundamentals    map[string]yahoo.Fundamentals      `json:"stock_fundamentals,omitempty"`
	Recommendations map[string][]yahoo.Recommendation  `json:"recommendations,omitempty"`
	NewsSentiment   map[string]NewsSentiment           `json:"news_sentiment,omitempty"`
	AISummary       string                             `json:"ai_summary,omitempty"`
}

// AddSymbols appends symbols, deduplicating by exact string equality
// while preserving first-seen order.
func (a *Analysis) AddSymbols(symbols ...string) {
	for _, symbol := range symbols {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		seen := false
		for _, existing := range a.Symbols {
			if existing == symbol {
				seen = true
				break
			}
		}
		if !seen {
			a.Symbols = append(a.Symbols, symbol)
		}
	}
}

// Finalize strips every empty category so callers never see
// placeholder keys.
func (a *Analysis) Finalize() {
	if len(a.Symbols) == 0 {
		a.Symbols = nil
	}
	if len(a.StockData) == 0 {
		a.StockData = nil
	}
	if len(a.AIInsights) == 0 {
		a.AIInsights = nil
	}
	if len(a.Fundamentals) == 0 {
		a.Fundamentals = nil
	}
	if len(a.Recommendations) == 0 {
		a.Recommendations = nil
	}
	if len(a.NewsSentiment) == 0 {
		a.NewsSentiment = nil
	}
	a.AISummary = strings.TrimSpace(a.AISummary)
}
