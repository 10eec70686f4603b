package streaming

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

type anthMessageStart struct {
	Type    string         `json:"type"`
	Message anthMessageBody `json:"message"`
}

type anthMessageBody struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Role    string    `json:"role"`
	Model   string    `json:"model"`
	Content []interface{} `json:"content"`
	Usage   anthStreamUsage `json:"usage"`
}

type anthStreamUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthBlockStart struct {
	Type         string      `json:"type"`
	Index        int         `json:"index"`
	ContentBlock interface{} `json:"content_block"`
}

type anthBlockDelta struct {
	Type  string      `json:"type"`
	Index int         `json:"index"`
	Delta interface{} `json:"delta"`
}

type anthBlockStop struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type anthMessageDelta struct {
	Type  string          `json:"type"`
	Delta anthMessageDeltaBody `json:"delta"`
	Usage anthStreamUsage `json:"usage"`
}

type anthMessageDeltaBody struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// anthBlock is one item queued for streaming: a text run, a thinking
// run, or a tool_use call, emitted in the same order Render would
// place them.
type anthBlock struct {
	kind string // "text", "thinking", "tool_use"
	text string
	tc   ir.ToolCall
}

// writeAnthropic synthesizes the Anthropic streaming event sequence.
func writeAnthropic(s *sink, resp *ir.Response, opts Options) error {
	size := opts.chunkSize()

	var blocks []anthBlock
	if mb := resp.FirstMessageBlock(); mb != nil {
		for _, b := range mb.Content {
			switch b.Type {
			case ir.ContentText:
				blocks = append(blocks, anthBlock{kind: "text", text: b.Text})
			case ir.ContentReasoning:
				blocks = append(blocks, anthBlock{kind: "thinking", text: b.Text})
			}
		}
		for _, tc := range mb.ToolCalls {
			blocks = append(blocks, anthBlock{kind: "tool_use", tc: tc})
		}
	}

	if err := s.event("message_start", anthMessageStart{
		Type: "message_start",
		Message: anthMessageBody{
			ID:      resp.ID,
			Type:    "message",
			Role:    "assistant",
			Model:   resp.Model,
			Content: []interface{}{},
			Usage:   anthStreamUsage{OutputTokens: 0},
		},
	}); err != nil {
		return err
	}

	for idx, b := range blocks {
		switch b.kind {
		case "text":
			if err := s.event("content_block_start", anthBlockStart{
				Type: "content_block_start", Index: idx,
				ContentBlock: map[string]interface{}{"type": "text", "text": ""},
			}); err != nil {
				return err
			}
			for _, c := range chunk(b.text, size) {
				if err := s.event("content_block_delta", anthBlockDelta{
					Type: "content_block_delta", Index: idx,
					Delta: map[string]interface{}{"type": "text_delta", "text": c},
				}); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}

		case "thinking":
			if err := s.event("content_block_start", anthBlockStart{
				Type: "content_block_start", Index: idx,
				ContentBlock: map[string]interface{}{"type": "thinking", "thinking": ""},
			}); err != nil {
				return err
			}
			for _, c := range chunk(b.text, size) {
				if err := s.event("content_block_delta", anthBlockDelta{
					Type: "content_block_delta", Index: idx,
					Delta: map[string]interface{}{"type": "thinking_delta", "thinking": c},
				}); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}

		case "tool_use":
			if err := s.event("content_block_start", anthBlockStart{
				Type: "content_block_start", Index: idx,
				ContentBlock: map[string]interface{}{
					"type": "tool_use", "id": b.tc.ID, "name": b.tc.Name, "input": json.RawMessage("{}"),
				},
			}); err != nil {
				return err
			}
			input := b.tc.Arguments
			if input == "" {
				input = "{}"
			}
			var probe interface{}
			payload := input
			if json.Unmarshal([]byte(input), &probe) == nil {
				if canon, err := json.Marshal(probe); err == nil {
					payload = string(canon)
				}
			}
			for _, c := range chunk(payload, size) {
				if err := s.event("content_block_delta", anthBlockDelta{
					Type: "content_block_delta", Index: idx,
					Delta: map[string]interface{}{"type": "input_json_delta", "partial_json": c},
				}); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}
		}

		if err := s.event("content_block_stop", anthBlockStop{Type: "content_block_stop", Index: idx}); err != nil {
			return err
		}
	}

	stopReason := "end_turn"
	switch resp.FinishReason {
	case "tool_calls":
		stopReason = "tool_use"
	case "":
		stopReason = "end_turn"
	default:
		stopReason = resp.FinishReason
	}
	outputTokens := 0
	if resp.Usage != nil {
		outputTokens = resp.Usage.OutputTokens
	}
	if err := s.event("message_delta", anthMessageDelta{
		Type:  "message_delta",
		Delta: anthMessageDeltaBody{StopReason: stopReason},
		Usage: anthStreamUsage{OutputTokens: outputTokens},
	}); err != nil {
		return err
	}

	return s.event("message_stop", map[string]string{"type": "message_stop"})
}
