package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func TestParse_SystemStringAndMessages(t *testing.T) {
	body := []byte(`{"model":"claude-test","system":"be helpful","messages":[{"role":"user","content":"hi"}]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.System) != 1 || req.System[0].Text != "be helpful" {
		t.Errorf("System = %+v, want one block \"be helpful\"", req.System)
	}
	if req.Messages[0].FirstText() != "hi" {
		t.Errorf("Messages[0].FirstText() = %q, want hi", req.Messages[0].FirstText())
	}
}

func TestParse_ToolUseBecomesToolCalls(t *testing.T) {
	body := []byte(`{"model":"claude-test","messages":[
		{"role":"user","content":"search for x"},
		{"role":"assistant","content":[{"type":"tool_use","id":"tu_1","name":"search","input":{"q":"x"}}]}
	]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	calls := req.Messages[1].ToolCalls
	if len(calls) != 1 || calls[0].Name != "search" || calls[0].ID != "tu_1" {
		t.Errorf("ToolCalls = %+v, want one search call with id tu_1", calls)
	}
}

func TestParse_ToolResultFlushesToSyntheticToolMessage(t *testing.T) {
	body := []byte(`{"model":"claude-test","messages":[
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_1","content":"42"}]}
	]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("Messages = %+v, want exactly one synthetic tool message", req.Messages)
	}
	msg := req.Messages[0]
	if msg.Role != ir.RoleTool || msg.ToolCallID != "tu_1" || msg.FirstText() != "42" {
		t.Errorf("tool message = %+v, want role=tool id=tu_1 text=42", msg)
	}
}

func TestParse_DropsThinkingBlocks(t *testing.T) {
	body := []byte(`{"model":"claude-test","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":[{"type":"thinking","thinking":"internal reasoning"},{"type":"text","text":"hello"}]}
	]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assistant := req.Messages[1]
	if len(assistant.Content) != 1 || assistant.Content[0].Text != "hello" {
		t.Errorf("Content = %+v, want only the text block", assistant.Content)
	}
}

func TestRender_ToolUseSetsStopReason(t *testing.T) {
	resp := &ir.Response{
		ID:           "resp-1",
		Model:        "claude-test",
		FinishReason: "tool_calls",
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage, Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{{ID: "tu_1", Name: "search", Arguments: `{"q":"x"}`}},
		}},
	}
	body, err := (Adapter{}).Render(resp, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["stop_reason"] != "tool_use" {
		t.Errorf("stop_reason = %v, want tool_use", out["stop_reason"])
	}
}
