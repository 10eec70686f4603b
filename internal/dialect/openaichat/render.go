package openaichat

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func (Adapter) Render(resp *ir.Response, req *ir.Request) ([]byte, error) {
	wr := wireResponse{
		ID:     resp.ID,
		Object: "chat.completion",
		Model:  resp.Model,
	}

	choice := wireChoice{FinishReason: resp.FinishReason}
	if choice.FinishReason == "" {
		choice.FinishReason = "stop"
	}
	choice.Message.Role = "assistant"

	if mb := resp.FirstMessageBlock(); mb != nil {
		choice.Message.Content = textOf(mb.Content)
		choice.Message.ReasoningContent = reasoningOf(mb.Content)
		for _, tc := range mb.ToolCalls {
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
	}

	wr.Choices = []wireChoice{choice}

	if resp.Usage != nil {
		wr.Usage = &wireUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return json.Marshal(wr)
}

func textOf(blocks []ir.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ir.ContentText {
			out += b.Text
		}
	}
	return out
}

func reasoningOf(blocks []ir.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ir.ContentReasoning {
			out += b.Text
		}
	}
	return out
}
