package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/analyst.txt
	analystRaw string

	//go:embed template/trend.txt
	trendRaw string

	//go:embed template/sentiment.txt
	sentimentRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Analyst   string
	Trend     string
	Sentiment string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe
// to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Analyst:   strings.TrimSpace(analystRaw),
		Trend:     strings.TrimSpace(trendRaw),
		Sentiment: strings.TrimSpace(sentimentRaw),
	}
}
