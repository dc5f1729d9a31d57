package contract

import (
	"context"

	"github.com/stocklens/stocklens/pkg/yahoo"
)

// ChatModel is the chat-completion collaborator. Exactly one of the
// reply's Content or ToolCalls is populated.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDescriptor) (Message, error)
}

// MarketData covers every market lookup the analyst can dispatch.
type MarketData interface {
	ResolveTicker(ctx context.Context, companyName string) ([]string, error)
	PriceHistory(ctx context.Context, symbol, startDate, endDate string) (yahoo.PriceHistory, error)
	Fundamentals(ctx context.Context, symbol string) (yahoo.Fundamentals, error)
	Recommendations(ctx context.Context, symbol string) ([]yahoo.Recommendation, error)
	News(ctx context.Context, symbol string, daysBack int) ([]yahoo.NewsItem, error)
}

type TrendAnalyzer interface {
	AnalyzeTrends(ctx context.Context, history yahoo.PriceHistory) (string, error)
}

type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, symbol string, items []yahoo.NewsItem) (SentimentVerdict, error)
}
