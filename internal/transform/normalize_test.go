package transform

import (
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func TestNormalizeRequest_DropsImagelessImageBlocksAndEmptyTools(t *testing.T) {
	req := ir.NewRequest("req-1", ir.OpChat)
	req.Tools = []ir.ToolDefinition{}
	req.Messages = []ir.Message{{
		Role: ir.RoleUser,
		Content: []ir.ContentBlock{
			{Type: ir.ContentText, Text: "hi"},
			{Type: ir.ContentImageURL, ImageURL: ""},
		},
	}}

	if err := (normalizeRequest{}).Apply(&Context{Request: req}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if req.Tools != nil {
		t.Errorf("Tools = %v, want nil after dropping an empty tools list", req.Tools)
	}
	if len(req.Messages[0].Content) != 1 {
		t.Fatalf("Content = %+v, want the imageless image_url block dropped", req.Messages[0].Content)
	}
}

func TestNormalizeResponse_InfersLengthFromPreExistingIncompleteStatusWithoutFinishReason(t *testing.T) {
	// A provider adapter that signals truncation per-item rather than
	// with a top-level finish_reason string has already set Status on
	// the block by the time this transform runs; that signal must
	// survive normalization and drive the inference below, not get
	// clobbered by it.
	resp := &ir.Response{
		Output: []ir.OutputBlock{{
			Type:    ir.OutputMessage,
			Role:    ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "cut off mid-sent"}},
			Status:  ir.StatusIncomplete,
		}},
	}

	if err := (normalizeResponse{}).Apply(&Context{Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if resp.FinishReason != "length" {
		t.Errorf("FinishReason = %q, want length inferred from a pre-existing incomplete status with no provider finish_reason", resp.FinishReason)
	}
	if resp.Output[0].Status != ir.StatusIncomplete {
		t.Errorf("Status = %q, want incomplete", resp.Output[0].Status)
	}
}

func TestNormalizeResponse_InfersIncompleteStatusFromTruncatedToolArgs(t *testing.T) {
	resp := &ir.Response{
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage,
			Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{
				{ID: "c1", Name: "search", Arguments: `{"query":"cut off mid-str`},
			},
		}},
	}

	if err := (normalizeResponse{}).Apply(&Context{Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Tool calls present take priority over inferred length in the
	// finish-reason inference, but the block's own Status must still
	// reflect the truncation independent of that precedence.
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls (present tool calls take priority)", resp.FinishReason)
	}
	if resp.Output[0].Status != ir.StatusIncomplete {
		t.Errorf("Status = %q, want incomplete due to malformed tool-call arguments", resp.Output[0].Status)
	}
}

func TestNormalizeResponse_WellFormedArgsWithNoFinishReasonInfersStop(t *testing.T) {
	resp := &ir.Response{
		Output: []ir.OutputBlock{{
			Type:    ir.OutputMessage,
			Role:    ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "done"}},
		}},
	}

	if err := (normalizeResponse{}).Apply(&Context{Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Output[0].Status != ir.StatusCompleted {
		t.Errorf("Status = %q, want completed", resp.Output[0].Status)
	}
}

func TestNormalizeResponse_ToolCallsTakePrecedenceOverInferredLength(t *testing.T) {
	resp := &ir.Response{
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage,
			Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{
				{ID: "c1", Name: "search", Arguments: `{"query":"x"}`},
			},
		}},
	}

	if err := (normalizeResponse{}).Apply(&Context{Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
}
