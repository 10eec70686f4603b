package anthropic

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/gatewayerr"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	dialect.Register(dialect.Anthropic, Adapter{})
}

// Adapter implements dialect.Adapter for Anthropic Messages.
type Adapter struct{}

func (Adapter) Parse(body []byte, headers map[string]string) (*ir.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, gatewayerr.InvalidSchemaf("anthropic: malformed body: %v", err)
	}
	if wr.Model == "" {
		return nil, gatewayerr.InvalidSchemaf("anthropic: model is required")
	}
	if len(wr.Messages) == 0 {
		return nil, gatewayerr.InvalidSchemaf("anthropic: messages is required")
	}

	req := ir.NewRequest(uuid.NewString(), ir.OpMessages)
	req.Model = wr.Model
	req.Stream = wr.Stream
	req.Metadata.OriginalHeaders = headers

	if len(wr.System) > 0 {
		sys, err := parseSystem(wr.System)
		if err != nil {
			return nil, gatewayerr.InvalidSchemaf("anthropic: system: %v", err)
		}
		req.System = sys
	}

	req.Parameters.MaxTokens = wr.MaxTokens
	req.Parameters.Temperature = wr.Temperature
	req.Parameters.TopP = wr.TopP
	req.Parameters.TopK = wr.TopK
	if len(wr.Thinking) > 0 {
		var th interface{}
		_ = json.Unmarshal(wr.Thinking, &th)
		req.Parameters.Thinking = th
	}

	msgs, err := parseMessages(wr.Messages)
	if err != nil {
		return nil, err
	}
	req.Messages = msgs

	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, ir.ToolDefinition{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  stripSchemaKey(t.InputSchema),
		})
	}

	if err := req.Validate(); err != nil {
		return nil, gatewayerr.InvalidSchemaf("anthropic: %v", err)
	}
	return req, nil
}

func stripSchemaKey(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	if _, ok := params["$schema"]; !ok {
		return params
	}
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k == "$schema" {
			continue
		}
		out[k] = v
	}
	return out
}

func parseSystem(raw json.RawMessage) ([]ir.ContentBlock, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []ir.ContentBlock{{Type: ir.ContentText, Text: s}}, nil
	case '[':
		var parts []wireSystemText
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, err
		}
		var blocks []ir.ContentBlock
		for _, p := range parts {
			blocks = append(blocks, ir.ContentBlock{Type: ir.ContentText, Text: p.Text})
		}
		return blocks, nil
	default:
		return nil, fmt.Errorf("unrecognized system shape")
	}
}

// parseMessages walks the message list, handling tool_use/tool_result
// flush semantics.
func parseMessages(in []wireMessage) ([]ir.Message, error) {
	var out []ir.Message

	for _, m := range in {
		blocks, err := decodeBlocks(m.Content)
		if err != nil {
			return nil, gatewayerr.InvalidSchemaf("anthropic: message content: %v", err)
		}

		if m.Role != "assistant" {
			// User (and any forward-compatible role) messages: walk
			// blocks, emitting synthetic tool messages for
			// tool_result and a single message for everything else.
			var content []ir.ContentBlock
			flush := func() {
				if len(content) > 0 {
					out = append(out, ir.Message{Role: ir.Role(m.Role), Content: content})
					content = nil
				}
			}
			for _, b := range blocks {
				if b.Type == "tool_result" {
					flush()
					out = append(out, ir.Message{
						Role:       ir.RoleTool,
						ToolCallID: b.ToolUseID,
						Content:    []ir.ContentBlock{{Type: ir.ContentText, Text: toolResultText(b.Content)}},
					})
					continue
				}
				if cb, ok := translateBlock(b); ok {
					content = append(content, cb)
				}
			}
			flush()
			continue
		}

		// Assistant message: tool_use -> ToolCalls, everything else ->
		// Content.
		var content []ir.ContentBlock
		var calls []ir.ToolCall
		for _, b := range blocks {
			if b.Type == "tool_use" {
				args := b.Input
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				calls = append(calls, ir.ToolCall{ID: b.ID, Name: b.Name, Arguments: string(args)})
				continue
			}
			if cb, ok := translateBlock(b); ok {
				content = append(content, cb)
			}
		}
		out = append(out, ir.Message{Role: ir.RoleAssistant, Content: content, ToolCalls: calls})
	}

	return out, nil
}

// translateBlock applies the per-block translation rules: drop
// thinking/redacted_thinking, pass through text, decode image
// sources.
func translateBlock(b wireBlock) (ir.ContentBlock, bool) {
	switch b.Type {
	case "thinking", "redacted_thinking":
		return ir.ContentBlock{}, false
	case "text":
		return ir.ContentBlock{Type: ir.ContentText, Text: b.Text}, true
	case "image":
		u, mime := decodeImageSource(b.Source)
		if u == "" {
			return ir.ContentBlock{}, false
		}
		return ir.ContentBlock{Type: ir.ContentImageURL, ImageURL: u, ImageMime: mime}, true
	default:
		if b.Thinking != "" {
			return ir.ContentBlock{}, false
		}
		return ir.ContentBlock{}, false
	}
}

func decodeImageSource(src *wireSource) (urlStr, mime string) {
	if src == nil {
		return "", ""
	}
	switch src.Type {
	case "url":
		return src.URL, src.MediaType
	case "base64":
		return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data), src.MediaType
	case "text":
		return fmt.Sprintf("data:%s,%s", src.MediaType, url.QueryEscape(src.Data)), src.MediaType
	default:
		return "", ""
	}
}

// toolResultText extracts text from a tool_result's content payload,
// which may be a bare string or an array of content blocks.
func toolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	if trimmed[0] == '[' {
		var blocks []wireBlock
		if json.Unmarshal(raw, &blocks) != nil {
			return ""
		}
		var out string
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}
	return trimmed
}

func decodeBlocks(raw json.RawMessage) ([]wireBlock, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []wireBlock{{Type: "text", Text: s}}, nil
	}
	var blocks []wireBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}
