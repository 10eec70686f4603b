package anthropic

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func (Adapter) Render(resp *ir.Response, req *ir.Request) ([]byte, error) {
	wr := wireResponse{
		ID:    resp.ID,
		Type:  "message",
		Role:  "assistant",
		Model: resp.Model,
	}

	if mb := resp.FirstMessageBlock(); mb != nil {
		for _, b := range mb.Content {
			switch b.Type {
			case ir.ContentText:
				wr.Content = append(wr.Content, wireOutBlock{Type: "text", Text: b.Text})
			case ir.ContentReasoning:
				wr.Content = append(wr.Content, wireOutBlock{Type: "thinking", Thinking: b.Text})
			}
		}
		for _, tc := range mb.ToolCalls {
			var input json.RawMessage
			if tc.Arguments != "" {
				input = json.RawMessage(tc.Arguments)
			} else {
				input = json.RawMessage("{}")
			}
			wr.Content = append(wr.Content, wireOutBlock{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: input,
			})
		}
	}

	wr.StopReason = stopReasonFor(resp.FinishReason)
	if resp.Usage != nil {
		wr.Usage = wireUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	}

	return json.Marshal(wr)
}

func stopReasonFor(finishReason string) string {
	switch finishReason {
	case "tool_calls":
		return "tool_use"
	case "":
		return "end_turn"
	default:
		return finishReason
	}
}
