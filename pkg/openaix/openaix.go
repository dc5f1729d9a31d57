package openaix

import (
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL            string        `split_words:"true"`
	APIKey             string        `split_words:"true" required:"true"`
	Model              string        `split_words:"true" default:"gpt-4o"`
	MaxCompletionToken int           `split_words:"true" default:"2000"`
	Temperature        float32       `split_words:"true" default:"0.5"`
	Timeout            time.Duration `split_words:"true" default:"30s"`
}

// NewClient creates an OpenAI SDK client. Returns nil when no API key
// is configured.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}

	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
