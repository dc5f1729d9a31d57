package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/stocklens/stocklens/agent/contract"
	promptx "github.com/stocklens/stocklens/agent/prompt"
	"github.com/stocklens/stocklens/pkg/yahoo"
)

var (
	_ contractx.TrendAnalyzer     = (*Insight)(nil)
	_ contractx.SentimentAnalyzer = (*Insight)(nil)
)

// Insight produces LLM-backed commentary: free-text trend analysis for
// price history and a structured sentiment verdict for news batches.
type Insight struct {
	model   contractx.ChatModel
	prompts promptx.PromptSet
}

func New(model contractx.ChatModel) (*Insight, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	return &Insight{
		model:   model,
		prompts: promptx.LoadPromptSet(),
	}, nil
}

// AnalyzeTrends summarizes price history as free text.
func (i *Insight) AnalyzeTrends(ctx context.Context, history yahoo.PriceHistory) (string, error) {
	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal price history: %v", contractx.ErrValidation, err)
	}

	reply, err := i.model.Chat(ctx, []contractx.Message{
		{Role: contractx.RoleSystem, Content: i.prompts.Trend},
		{Role: contractx.RoleUser, Content: "Stock Data:\n" + string(payload)},
	}, nil)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(reply.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty trend analysis", contractx.ErrSchemaViolation)
	}
	return text, nil
}

// AnalyzeSentiment judges a bounded news batch and returns the
// structured verdict.
func (i *Insight) AnalyzeSentiment(ctx context.Context, symbol string, items []yahoo.NewsItem) (contractx.SentimentVerdict, error) {
	headlines := make([]string, 0, len(items))
	for _, item := range items {
		if title := strings.TrimSpace(item.Title); title != "" {
			headlines = append(headlines, title)
		}
	}
	if len(headlines) == 0 {
		return neutralVerdict(), nil
	}

	payload, err := json.Marshal(map[string]any{
		"symbol":    symbol,
		"headlines": headlines,
	})
	if err != nil {
		return contractx.SentimentVerdict{}, fmt.Errorf("%w: marshal headlines: %v", contractx.ErrValidation, err)
	}

	reply, err := i.model.Chat(ctx, []contractx.Message{
		{Role: contractx.RoleSystem, Content: i.prompts.Sentiment},
		{Role: contractx.RoleUser, Content: string(payload)},
	}, nil)
	if err != nil {
		return contractx.SentimentVerdict{}, err
	}

	return parseVerdict(reply.Content)
}

func parseVerdict(content string) (contractx.SentimentVerdict, error) {
	raw := stripFences(content)

	var verdict contractx.SentimentVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return contractx.SentimentVerdict{}, fmt.Errorf("%w: sentiment verdict is not valid JSON: %v", contractx.ErrSchemaViolation, err)
	}

	verdict.Sentiment = contractx.Sentiment(normalize(string(verdict.Sentiment)))
	verdict.PriceMovement = contractx.PriceMovement(normalize(string(verdict.PriceMovement)))
	verdict.Valuation = contractx.Valuation(normalize(string(verdict.Valuation)))

	switch verdict.Sentiment {
	case contractx.SentimentBullish, contractx.SentimentBearish, contractx.SentimentNeutral:
	default:
		return contractx.SentimentVerdict{}, fmt.Errorf("%w: unexpected sentiment %q", contractx.ErrSchemaViolation, verdict.Sentiment)
	}
	switch verdict.PriceMovement {
	case contractx.MovementUp, contractx.MovementDown, contractx.MovementNeutral:
	default:
		return contractx.SentimentVerdict{}, fmt.Errorf("%w: unexpected price movement %q", contractx.ErrSchemaViolation, verdict.PriceMovement)
	}
	switch verdict.Valuation {
	case contractx.ValuationOvervalued, contractx.ValuationUndervalued, contractx.ValuationFair:
	default:
		return contractx.SentimentVerdict{}, fmt.Errorf("%w: unexpected valuation %q", contractx.ErrSchemaViolation, verdict.Valuation)
	}

	return verdict, nil
}

func neutralVerdict() contractx.SentimentVerdict {
	return contractx.SentimentVerdict{
		Sentiment:     contractx.SentimentNeutral,
		PriceMovement: contractx.MovementNeutral,
		Valuation:     contractx.ValuationFair,
	}
}

// stripFences removes a surrounding markdown code fence, which some
// models emit despite the JSON-only instruction.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
