package llm

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/stocklens/stocklens/agent/contract"
	openaixx "github.com/stocklens/stocklens/pkg/openaix"
)

var _ contractx.ChatModel = (*Client)(nil)

// Client drives OpenAI chat completions for the analyst. It is safe
// for concurrent use; all conversation state lives with the caller.
type Client struct {
	client      *openaisdk.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewClient(sdk *openaisdk.Client, cfg openaixx.Config) (*Client, error) {
	if sdk == nil {
		return nil, errors.New("openai sdk client is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	return &Client{
		client:      sdk,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
	}, nil
}

// Chat sends the conversation and returns the assistant's reply.
// Exactly one of the reply's Content or ToolCalls is populated.
func (c *Client) Chat(ctx context.Context, messages []contractx.Message, tools []contractx.ToolDescriptor) (contractx.Message, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.model),
		Messages: toMessageParams(messages),
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}
	if c.temperature >= 0 {
		params.Temperature = openaisdk.Float(float64(c.temperature))
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Message{}, fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}

	return fromCompletionMessage(resp.Choices[0].Message), nil
}

func toMessageParams(messages []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	params := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case contractx.RoleSystem:
			params = append(params, openaisdk.SystemMessage(msg.Content))
		case contractx.RoleUser:
			params = append(params, openaisdk.UserMessage(msg.Content))
		case contractx.RoleTool:
			params = append(params, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		case contractx.RoleAssistant:
			assistant := openaisdk.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content = openaisdk.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openaisdk.String(msg.Content),
				}
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			params = append(params, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return params
}

func toToolParams(tools []contractx.ToolDescriptor) []openaisdk.ChatCompletionToolParam {
	params := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, descriptor := range tools {
		properties := make(map[string]any, len(descriptor.Parameters))
		for name, param := range descriptor.Parameters {
			properties[name] = map[string]any{
				"type":        param.Type,
				"description": param.Description,
			}
		}

		schema := openaisdk.FunctionParameters{
			"type":       "object",
			"properties": properties,
		}
		if len(descriptor.Required) > 0 {
			schema["required"] = descriptor.Required
		}

		params = append(params, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        descriptor.Name,
				Description: openaisdk.String(descriptor.Description),
				Parameters:  schema,
			},
		})
	}
	return params
}

func fromCompletionMessage(msg openaisdk.ChatCompletionMessage) contractx.Message {
	out := contractx.Message{
		Role:    contractx.RoleAssistant,
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, contractx.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	if len(out.ToolCalls) > 0 {
		out.Content = ""
	}
	return out
}
