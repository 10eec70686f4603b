package openaichat

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/gatewayerr"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	dialect.Register(dialect.OpenAIChat, Adapter{})
}

// Adapter implements dialect.Adapter for OpenAI Chat Completions.
type Adapter struct{}

func (Adapter) Parse(body []byte, headers map[string]string) (*ir.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, gatewayerr.InvalidSchemaf("openai_chat: malformed body: %v", err)
	}
	if wr.Model == "" {
		return nil, gatewayerr.InvalidSchemaf("openai_chat: model is required")
	}
	if len(wr.Messages) == 0 {
		return nil, gatewayerr.InvalidSchemaf("openai_chat: messages is required")
	}

	req := ir.NewRequest(uuid.NewString(), ir.OpChat)
	req.Model = wr.Model
	req.Stream = wr.Stream
	req.Metadata.OriginalHeaders = headers

	for _, m := range wr.Messages {
		msg, err := parseMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msg)
	}

	if len(wr.Tools) > 0 {
		for _, t := range wr.Tools {
			req.Tools = append(req.Tools, toolFromWire(t.Function))
		}
	} else if len(wr.Functions) > 0 {
		// Legacy top-level functions become tools.
		for _, f := range wr.Functions {
			req.Tools = append(req.Tools, toolFromWire(f))
		}
	}

	req.Parameters.Temperature = wr.Temperature
	req.Parameters.TopP = wr.TopP
	// max_completion_tokens takes precedence over max_tokens.
	if wr.MaxCompletionTokens != nil {
		req.Parameters.MaxTokens = wr.MaxCompletionTokens
	} else {
		req.Parameters.MaxTokens = wr.MaxTokens
	}
	if wr.ReasoningEffort != "" {
		req.Parameters.Thinking = wr.ReasoningEffort
	}

	if err := req.Validate(); err != nil {
		return nil, gatewayerr.InvalidSchemaf("openai_chat: %v", err)
	}
	return req, nil
}

func toolFromWire(f wireFunction) ir.ToolDefinition {
	return ir.ToolDefinition{
		Type:        "function",
		Name:        f.Name,
		Description: f.Description,
		Strict:      f.Strict,
		Parameters:  stripSchemaKey(f.Parameters),
	}
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

func parseMessage(m wireMessage) (ir.Message, error) {
	role := ir.Role(m.Role)
	msg := ir.Message{Role: role, ToolCallID: m.ToolCallID}

	if len(m.Content) > 0 {
		blocks, err := parseContent(m.Content)
		if err != nil {
			return ir.Message{}, gatewayerr.InvalidSchemaf("openai_chat: message content: %v", err)
		}
		msg.Content = blocks
	}

	if m.ReasoningContent != "" {
		msg.Content = append(msg.Content, ir.ContentBlock{Type: ir.ContentReasoning, Text: m.ReasoningContent})
	}

	if m.FunctionCall != nil {
		// Legacy function_call becomes a tool call whose id equals the
		// function name.
		msg.ToolCalls = append(msg.ToolCalls, ir.ToolCall{
			ID:        m.FunctionCall.Name,
			Name:      m.FunctionCall.Name,
			Arguments: serializedArgs(m.FunctionCall.Arguments),
		})
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ir.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: serializedArgs(tc.Function.Arguments),
		})
	}

	return msg, nil
}

// serializedArgs normalizes tool-call arguments: an empty string
// becomes "{}", and any other string is returned unchanged, whether or
// not it parses as JSON. The wire field is decoded as a string, so
// arguments sent as a JSON object (rather than a JSON-encoded string)
// are not accepted and fail body decoding.
func serializedArgs(raw string) string {
	if raw == "" {
		return "{}"
	}
	var probe interface{}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return raw
	}
	return raw
}

func parseContent(raw json.RawMessage) ([]ir.ContentBlock, error) {
	trimmed := trimLeadingSpace(raw)
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
		var parts []wireContentPart
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, err
		}
		var blocks []ir.ContentBlock
		for _, p := range parts {
			switch p.Type {
			case "text":
				blocks = append(blocks, ir.ContentBlock{Type: ir.ContentText, Text: p.Text})
			case "image_url":
				if p.ImageURL == nil || p.ImageURL.URL == "" {
					continue // dropped per Normalize ingress transform
				}
				blocks = append(blocks, ir.ContentBlock{Type: ir.ContentImageURL, ImageURL: p.ImageURL.URL})
			}
		}
		return blocks, nil
	case 'n':
		return nil, nil // null content
	default:
		return nil, fmt.Errorf("unrecognized content shape")
	}
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
