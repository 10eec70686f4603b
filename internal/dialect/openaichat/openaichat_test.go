package openaichat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func TestParse_BasicChatRequest(t *testing.T) {
	body := []byte(`{"model":"gpt-test","messages":[{"role":"user","content":"hello"}]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Model != "gpt-test" {
		t.Errorf("Model = %q, want gpt-test", req.Model)
	}
	if len(req.Messages) != 1 || req.Messages[0].FirstText() != "hello" {
		t.Errorf("Messages = %+v, want one user message with text hello", req.Messages)
	}
}

func TestParse_MissingModelIsInvalidSchema(t *testing.T) {
	body := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)
	if _, err := (Adapter{}).Parse(body, nil); err == nil {
		t.Fatal("expected an error when model is missing")
	}
}

func TestParse_LegacyFunctionCallBecomesToolCall(t *testing.T) {
	body := []byte(`{"model":"gpt-test","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","function_call":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}
	]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	calls := req.Messages[1].ToolCalls
	if len(calls) != 1 || calls[0].Name != "lookup" {
		t.Errorf("ToolCalls = %+v, want one call named lookup", calls)
	}
}

func TestParse_MaxCompletionTokensTakesPrecedence(t *testing.T) {
	body := []byte(`{"model":"gpt-test","max_tokens":10,"max_completion_tokens":20,"messages":[{"role":"user","content":"hi"}]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Parameters.MaxTokens == nil || *req.Parameters.MaxTokens != 20 {
		t.Errorf("MaxTokens = %v, want 20", req.Parameters.MaxTokens)
	}
}

func TestParse_StripsSchemaKeyFromToolParameters(t *testing.T) {
	body := []byte(`{"model":"gpt-test","messages":[{"role":"user","content":"hi"}],
		"tools":[{"type":"function","function":{"name":"f","parameters":{"$schema":"x","type":"object"}}}]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := req.Tools[0].Parameters["$schema"]; ok {
		t.Error("expected $schema to be stripped from tool parameters")
	}
}

func TestRender_RoundTripsTextAndToolCalls(t *testing.T) {
	resp := &ir.Response{
		ID:           "resp-1",
		Model:        "gpt-test",
		FinishReason: "tool_calls",
		Output: []ir.OutputBlock{{
			Type:    ir.OutputMessage,
			Role:    ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "here you go"}},
			ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`}},
		}},
	}
	body, err := (Adapter{}).Render(resp, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		t.Fatalf("unmarshal rendered body: %v", err)
	}
	if len(wr.Choices) != 1 {
		t.Fatalf("Choices = %d, want 1", len(wr.Choices))
	}
	choice := wr.Choices[0]
	if choice.Message.Content != "here you go" {
		t.Errorf("Content = %q, want \"here you go\"", choice.Message.Content)
	}
	if choice.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) != 1 || choice.Message.ToolCalls[0].Function.Name != "lookup" {
		t.Errorf("ToolCalls = %+v, want one call named lookup", choice.Message.ToolCalls)
	}
}

func TestRender_DefaultsFinishReasonToStop(t *testing.T) {
	resp := &ir.Response{Output: []ir.OutputBlock{{Type: ir.OutputMessage, Role: ir.RoleAssistant}}}
	body, err := (Adapter{}).Render(resp, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(body), `"finish_reason":"stop"`) {
		t.Errorf("expected default finish_reason stop, got %s", body)
	}
}
