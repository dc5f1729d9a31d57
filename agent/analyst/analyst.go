package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/stocklens/stocklens/agent/contract"
	promptx "github.com/stocklens/stocklens/agent/prompt"
	toolx "github.com/stocklens/stocklens/agent/tool"
	"github.com/stocklens/stocklens/pkg/yahoo"
)

const (
	defaultMaxTurns       = 8
	defaultNewsLookback   = 7
	maxSentimentHeadlines = 5
)

// Option customizes an Analyst.
type Option func(*Analyst)

// WithMaxTurns caps the number of model turns per run.
func WithMaxTurns(n int) Option {
	return func(a *Analyst) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithRawNews retains fetched news articles in the result alongside
// the sentiment verdict.
func WithRawNews() Option {
	return func(a *Analyst) {
		a.keepRawNews = true
	}
}

// Analyst runs the tool-calling conversation for one query at a time.
// Instances hold no per-run state and are safe to share across
// concurrent requests.
type Analyst struct {
	model       contractx.ChatModel
	market      contractx.MarketData
	trends      contractx.TrendAnalyzer
	sentiment   contractx.SentimentAnalyzer
	systemText  string
	maxTurns    int
	keepRawNews bool
}

func New(
	model contractx.ChatModel,
	market contractx.MarketData,
	trends contractx.TrendAnalyzer,
	sentiment contractx.SentimentAnalyzer,
	opts ...Option,
) (*Analyst, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if market == nil {
		return nil, errors.New("market data collaborator is required")
	}
	if trends == nil {
		return nil, errors.New("trend analyzer is required")
	}
	if sentiment == nil {
		return nil, errors.New("sentiment analyzer is required")
	}

	a := &Analyst{
		model:      model,
		market:     market,
		trends:     trends,
		sentiment:  sentiment,
		systemText: promptx.LoadPromptSet().Analyst,
		maxTurns:   defaultMaxTurns,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Run drives the conversation until the model answers in plain text,
// dispatching each requested tool in order and merging results. Any
// collaborator failure, unknown tool or missing argument aborts the
// run; the turn cap fails with ErrTurnLimit.
func (a *Analyst) Run(ctx context.Context, query string) (contractx.Analysis, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return contractx.Analysis{}, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}

	messages := []contractx.Message{
		{Role: contractx.RoleSystem, Content: a.systemText},
		{Role: contractx.RoleUser, Content: query},
	}

	var out contractx.Analysis
	for turn := 0; turn < a.maxTurns; turn++ {
		reply, err := a.model.Chat(ctx, messages, toolx.Catalog())
		if err != nil {
			return contractx.Analysis{}, err
		}

		if len(reply.ToolCalls) == 0 {
			out.AISummary = reply.Content
			out.Finalize()
			log.Debug().Str("query", query).Int("turns", turn+1).Msg("analysis complete")
			return out, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			log.Debug().Str("tool", call.Name).Str("args", call.Arguments).Msg("dispatching tool call")
			payload, err := a.dispatch(ctx, call, &out)
			if err != nil {
				return contractx.Analysis{}, err
			}
			messages = append(messages, toolMessage(call, payload))
		}
	}

	return contractx.Analysis{}, fmt.Errorf("%w: no final answer after %d turns", contractx.ErrTurnLimit, a.maxTurns)
}

func (a *Analyst) dispatch(ctx context.Context, call contractx.ToolCall, out *contractx.Analysis) (map[string]any, error) {
	args, err := toolx.ValidateCall(call)
	if err != nil {
		return nil, err
	}

	switch call.Name {
	case toolx.ToolResolveTicker:
		symbols, err := a.market.ResolveTicker(ctx, toolx.StringArg(args, "company_name"))
		if err != nil {
			return nil, err
		}
		out.AddSymbols(symbols...)
		return map[string]any{"symbols": symbols}, nil

	case toolx.ToolStockData:
		symbol := toolx.StringArg(args, "symbol")
		history, err := a.market.PriceHistory(ctx, symbol,
			toolx.StringArg(args, "start_date"), toolx.StringArg(args, "end_date"))
		if err != nil {
			return nil, err
		}
		out.AddSymbols(symbol)
		if out.StockData == nil {
			out.StockData = make(map[string]yahoo.PriceHistory)
		}
		out.StockData[symbol] = history

		payload := map[string]any{"symbol": symbol, "stock_data": history}
		if insights, err := a.trends.AnalyzeTrends(ctx, history); err != nil {
			// non-fatal: the run can still answer without commentary
			log.Warn().Err(err).Str("symbol", symbol).Msg("trend analysis failed")
		} else {
			if out.AIInsights == nil {
				out.AIInsights = make(map[string]string)
			}
			out.AIInsights[symbol] = insights
			payload["ai_insights"] = insights
		}
		return payload, nil

	case toolx.ToolFundamentals:
		symbol := toolx.StringArg(args, "symbol")
		fundamentals, err := a.market.Fundamentals(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out.AddSymbols(symbol)
		if out.Fundamentals == nil {
			out.Fundamentals = make(map[string]yahoo.Fundamentals)
		}
		out.Fundamentals[symbol] = fundamentals
		return map[string]any{"symbol": symbol, "stock_fundamentals": fundamentals}, nil

	case toolx.ToolRecommendations:
		symbol := toolx.StringArg(args, "symbol")
		recommendations, err := a.market.Recommendations(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out.AddSymbols(symbol)
		if out.Recommendations == nil {
			out.Recommendations = make(map[string][]yahoo.Recommendation)
		}
		out.Recommendations[symbol] = recommendations
		return map[string]any{"symbol": symbol, "recommendations": recommendations}, nil

	case toolx.ToolStockNews:
		symbol := toolx.StringArg(args, "symbol")
		items, err := a.market.News(ctx, symbol, toolx.IntArg(args, "days_back", defaultNewsLookback))
		if err != nil {
			return nil, err
		}
		batch := items
		if len(batch) > maxSentimentHeadlines {
			batch = batch[:maxSentimentHeadlines]
		}
		verdict, err := a.sentiment.AnalyzeSentiment(ctx, symbol, batch)
		if err != nil {
			return nil, err
		}
		out.AddSymbols(symbol)
		report := contractx.NewsSentiment{Analysis: verdict}
		if a.keepRawNews {
			report.Articles = items
		}
		if out.NewsSentiment == nil {
			out.NewsSentiment = make(map[string]contractx.NewsSentiment)
		}
		out.NewsSentiment[symbol] = report
		return map[string]any{"symbol": symbol, "news_sentiment": report}, nil
	}

	return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, call.Name)
}

func toolMessage(call contractx.ToolCall, payload map[string]any) contractx.Message {
	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(`{}`)
	}
	return contractx.Message{
		Role:       contractx.RoleTool,
		Content:    string(content),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}
