package openairesponses

import (
	"encoding/json"
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func TestParse_InputAsBareString(t *testing.T) {
	body := []byte(`{"model":"gpt-test","input":"hello"}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].FirstText() != "hello" {
		t.Errorf("Messages = %+v, want one user message \"hello\"", req.Messages)
	}
}

func TestParse_MessagesArray(t *testing.T) {
	body := []byte(`{"model":"gpt-test","messages":[{"role":"user","content":"hi"}]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != ir.RoleUser {
		t.Errorf("Messages = %+v, want one user message", req.Messages)
	}
}

func TestParse_FunctionCallOutputBecomesToolMessage(t *testing.T) {
	body := []byte(`{"model":"gpt-test","input":[
		{"type":"function_call","call_id":"call_1","name":"lookup","arguments":"{}"},
		{"type":"function_call_output","call_id":"call_1","output":"42"}
	]}`)
	req, err := (Adapter{}).Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("Messages = %+v, want 2 (assistant call + tool output)", req.Messages)
	}
	toolMsg := req.Messages[1]
	if toolMsg.Role != ir.RoleTool || toolMsg.ToolCallID != "call_1" || toolMsg.FirstText() != "42" {
		t.Errorf("tool message = %+v, want role=tool id=call_1 text=42", toolMsg)
	}
}

func TestParse_MissingModelIsInvalidSchema(t *testing.T) {
	body := []byte(`{"input":"hi"}`)
	if _, err := (Adapter{}).Parse(body, nil); err == nil {
		t.Fatal("expected an error when model is missing")
	}
}

func TestRender_SetsIncompleteStatusOnLengthFinish(t *testing.T) {
	resp := &ir.Response{
		ID: "resp-1", Model: "gpt-test", FinishReason: "length",
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage, Role: ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "partial"}},
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
	if out["status"] != "incomplete" {
		t.Errorf("status = %v, want incomplete", out["status"])
	}
	if out["output_text"] != "partial" {
		t.Errorf("output_text = %v, want partial", out["output_text"])
	}
}

func TestRender_FunctionCallItem(t *testing.T) {
	resp := &ir.Response{
		ID: "resp-2", Model: "gpt-test",
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage, Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`}},
		}},
	}
	body, err := (Adapter{}).Render(resp, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !contains(string(body), `"type":"function_call"`) || !contains(string(body), `"name":"lookup"`) {
		t.Errorf("expected a function_call output item, got %s", body)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
