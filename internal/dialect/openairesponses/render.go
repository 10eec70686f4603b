package openairesponses

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func (Adapter) Render(resp *ir.Response, req *ir.Request) ([]byte, error) {
	wr := wireResponse{
		ID:     resp.ID,
		Object: "response",
		Model:  resp.Model,
		Status: "completed",
	}
	if resp.FinishReason == "length" {
		wr.Status = "incomplete"
	}

	var concatenated string

	for _, blk := range resp.Output {
		switch blk.Type {
		case ir.OutputMessage:
			if reasoning := reasoningItem(blk.Content); reasoning != nil {
				wr.Output = append(wr.Output, *reasoning)
			}
			item := wireOutItem{Type: "message", Role: "assistant", Status: "completed"}
			for _, b := range blk.Content {
				switch b.Type {
				case ir.ContentText:
					item.Content = append(item.Content, wireOutContent{Type: "output_text", Text: b.Text})
					concatenated += b.Text
				case ir.ContentImageURL:
					item.Content = append(item.Content, wireOutContent{Type: "output_text", Text: b.ImageURL})
				case ir.ContentJSON:
					if enc, err := json.Marshal(b.JSONData); err == nil {
						item.Content = append(item.Content, wireOutContent{Type: "output_text", Text: string(enc)})
					}
				}
			}
			if len(item.Content) > 0 {
				wr.Output = append(wr.Output, item)
			}
			for _, tc := range blk.ToolCalls {
				wr.Output = append(wr.Output, functionCallItem(tc))
			}

		case ir.OutputToolCall:
			wr.Output = append(wr.Output, wireOutItem{
				Type:      "function_call",
				CallID:    blk.CallID,
				Name:      blk.Name,
				Arguments: nonEmptyArgs(blk.Args),
			})

		case ir.OutputReasoning:
			if len(blk.Summary) == 0 {
				continue
			}
			item := wireOutItem{Type: "reasoning"}
			for _, s := range blk.Summary {
				item.Content = append(item.Content, wireOutContent{Type: "reasoning_text", Text: s})
			}
			wr.Output = append(wr.Output, item)
		}
	}

	wr.OutputText = concatenated

	if resp.Usage != nil {
		wr.Usage = &wireUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	return json.Marshal(wr)
}

func functionCallItem(tc ir.ToolCall) wireOutItem {
	return wireOutItem{
		Type:      "function_call",
		CallID:    tc.ID,
		Name:      tc.Name,
		Arguments: nonEmptyArgs(tc.Arguments),
	}
}

// reasoningItem synthesizes a preceding "reasoning" item from a
// message block's reasoning content blocks.
func reasoningItem(blocks []ir.ContentBlock) *wireOutItem {
	var texts []string
	for _, b := range blocks {
		if b.Type == ir.ContentReasoning && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	item := &wireOutItem{Type: "reasoning"}
	for _, t := range texts {
		item.Content = append(item.Content, wireOutContent{Type: "reasoning_text", Text: t})
	}
	return item
}
