package llm

import (
	"testing"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/stocklens/stocklens/agent/contract"
	openaixx "github.com/stocklens/stocklens/pkg/openaix"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(nil, openaixx.Config{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error for nil sdk client")
	}
	if _, err := NewClient(&openaisdk.Client{}, openaixx.Config{}); err == nil {
		t.Fatal("expected error for missing model name")
	}
}

func TestToMessageParams(t *testing.T) {
	t.Parallel()

	messages := []contractx.Message{
		{Role: contractx.RoleSystem, Content: "you are a stock analyst"},
		{Role: contractx.RoleUser, Content: "how is microsoft doing"},
		{Role: contractx.RoleAssistant, ToolCalls: []contractx.ToolCall{
			{ID: "call-1", Name: "resolve_ticker", Arguments: `{"company_name":"Microsoft"}`},
		}},
		{Role: contractx.RoleTool, Content: `["MSFT"]`, ToolCallID: "call-1", Name: "resolve_ticker"},
		{Role: contractx.RoleAssistant, Content: "MSFT resolved"},
	}

	params := toMessageParams(messages)
	if len(params) != 5 {
		t.Fatalf("expected 5 params, got %d", len(params))
	}

	if params[0].OfSystem == nil {
		t.Fatal("first param must be a system message")
	}
	if params[1].OfUser == nil {
		t.Fatal("second param must be a user message")
	}

	assistant := params[2].OfAssistant
	if assistant == nil {
		t.Fatal("third param must be an assistant message")
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].ID != "call-1" ||
		assistant.ToolCalls[0].Function.Name != "resolve_ticker" ||
		assistant.ToolCalls[0].Function.Arguments != `{"company_name":"Microsoft"}` {
		t.Fatalf("unexpected tool call: %+v", assistant.ToolCalls[0])
	}

	tool := params[3].OfTool
	if tool == nil {
		t.Fatal("fourth param must be a tool message")
	}
	if tool.ToolCallID != "call-1" {
		t.Fatalf("tool call id = %q, want call-1", tool.ToolCallID)
	}

	if params[4].OfAssistant == nil {
		t.Fatal("fifth param must be an assistant message")
	}
}

func TestToToolParams(t *testing.T) {
	t.Parallel()

	descriptors := []contractx.ToolDescriptor{{
		Name:        "fetch_stock_news",
		Description: "Fetch recent news for a symbol.",
		Parameters: map[string]contractx.Param{
			"symbol":    {Type: "string", Description: "Ticker symbol."},
			"days_back": {Type: "integer", Description: "Lookback window in days."},
		},
		Required: []string{"symbol"},
	}}

	params := toToolParams(descriptors)
	if len(params) != 1 {
		t.Fatalf("expected 1 tool param, got %d", len(params))
	}

	fn := params[0].Function
	if fn.Name != "fetch_stock_news" {
		t.Fatalf("name = %q", fn.Name)
	}

	schema := fn.Parameters
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v", schema["type"])
	}
	properties, ok := schema["properties"].(map[string]any)
	if !ok || len(properties) != 2 {
		t.Fatalf("unexpected properties: %v", schema["properties"])
	}
	symbol, ok := properties["symbol"].(map[string]any)
	if !ok || symbol["type"] != "string" {
		t.Fatalf("unexpected symbol property: %v", properties["symbol"])
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "symbol" {
		t.Fatalf("unexpected required list: %v", schema["required"])
	}
}

func TestToToolParamsOmitsEmptyRequired(t *testing.T) {
	t.Parallel()

	params := toToolParams([]contractx.ToolDescriptor{{
		Name:       "ping",
		Parameters: map[string]contractx.Param{},
	}})
	if _, ok := params[0].Function.Parameters["required"]; ok {
		t.Fatal("required must be absent when no arguments are required")
	}
}

func TestFromCompletionMessageText(t *testing.T) {
	t.Parallel()

	msg := fromCompletionMessage(openaisdk.ChatCompletionMessage{Content: "MSFT closed higher."})
	if msg.Role != contractx.RoleAssistant || msg.Content != "MSFT closed higher." {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.ToolCalls) != 0 {
		t.Fatalf("unexpected tool calls: %+v", msg.ToolCalls)
	}
}

func TestFromCompletionMessageToolCallsClearContent(t *testing.T) {
	t.Parallel()

	msg := fromCompletionMessage(openaisdk.ChatCompletionMessage{
		Content: "thinking out loud",
		ToolCalls: []openaisdk.ChatCompletionMessageToolCall{{
			ID: "call-9",
			Function: openaisdk.ChatCompletionMessageToolCallFunction{
				Name:      "fetch_stock_data",
				Arguments: `{"symbol":"TSLA"}`,
			},
		}},
	})

	if msg.Content != "" {
		t.Fatalf("content must be cleared when tool calls are present, got %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ID != "call-9" || msg.ToolCalls[0].Name != "fetch_stock_data" {
		t.Fatalf("unexpected tool calls: %+v", msg.ToolCalls)
	}
}
