package openairesponses

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/gatewayerr"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	dialect.Register(dialect.OpenAIResponses, Adapter{})
}

// Adapter implements dialect.Adapter for OpenAI Responses.
type Adapter struct{}

func (Adapter) Parse(body []byte, headers map[string]string) (*ir.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, gatewayerr.InvalidSchemaf("openai_responses: malformed body: %v", err)
	}
	if wr.Model == "" {
		return nil, gatewayerr.InvalidSchemaf("openai_responses: model is required")
	}

	req := ir.NewRequest(uuid.NewString(), ir.OpResponses)
	req.Model = wr.Model
	req.Stream = wr.Stream
	req.Metadata.OriginalHeaders = headers

	var msgs []ir.Message
	var err error
	switch {
	case len(wr.Messages) > 0:
		msgs, err = parseItemArray(wr.Messages)
	case len(wr.Input) > 0:
		msgs, err = parseInput(wr.Input)
	default:
		return nil, gatewayerr.InvalidSchemaf("openai_responses: one of messages or input is required")
	}
	if err != nil {
		return nil, err
	}
	req.Messages = msgs

	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, ir.ToolDefinition{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  stripSchemaKey(t.Parameters),
			Strict:      t.Strict,
		})
	}

	req.Parameters.Temperature = wr.Temperature
	req.Parameters.TopP = wr.TopP
	req.Parameters.MaxTokens = wr.MaxTokens

	if err := req.Validate(); err != nil {
		return nil, gatewayerr.InvalidSchemaf("openai_responses: %v", err)
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

// parseInput handles the top-level "input" field, which may be a bare
// string, an array of input items, or a single message-like object.
func parseInput(raw json.RawMessage) ([]ir.Message, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, gatewayerr.InvalidSchemaf("openai_responses: input: %v", err)
		}
		return []ir.Message{{Role: ir.RoleUser, Content: []ir.ContentBlock{{Type: ir.ContentText, Text: s}}}}, nil
	case '[':
		var items []wireInputItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, gatewayerr.InvalidSchemaf("openai_responses: input: %v", err)
		}
		return walkItems(items)
	case '{':
		var item wireInputItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, gatewayerr.InvalidSchemaf("openai_responses: input: %v", err)
		}
		return walkItems([]wireInputItem{item})
	default:
		return nil, gatewayerr.InvalidSchemaf("openai_responses: unrecognized input shape")
	}
}

// parseItemArray handles the top-level "messages" field, a chat-style
// array of {role, content} objects.
func parseItemArray(raw json.RawMessage) ([]ir.Message, error) {
	var items []wireInputItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, gatewayerr.InvalidSchemaf("openai_responses: messages: %v", err)
	}
	return walkItems(items)
}

// walkItems implements the input array-walk rules: plain
// strings and text-like objects become standalone user messages,
// message-like objects parse like chat messages, function_call_output
// objects emit a synthetic tool message, and function_call objects
// append to (or start) the trailing assistant message.
func walkItems(items []wireInputItem) ([]ir.Message, error) {
	var out []ir.Message

	for _, it := range items {
		switch {
		case it.Type == "function_call_output" || it.callID() != "" && it.Output != nil:
			out = append(out, ir.Message{
				Role:       ir.RoleTool,
				ToolCallID: it.callID(),
				Content:    []ir.ContentBlock{{Type: ir.ContentText, Text: outputText(it.Output)}},
			})

		case it.Type == "function_call":
			call := ir.ToolCall{ID: it.callID(), Name: it.Name, Arguments: nonEmptyArgs(it.Arguments)}
			if n := len(out); n > 0 && out[n-1].Role == ir.RoleAssistant {
				out[n-1].ToolCalls = append(out[n-1].ToolCalls, call)
				continue
			}
			out = append(out, ir.Message{Role: ir.RoleAssistant, ToolCalls: []ir.ToolCall{call}})

		case it.Role != "" && it.Content != nil:
			blocks, err := parseContentItem(it.Content)
			if err != nil {
				return nil, gatewayerr.InvalidSchemaf("openai_responses: input content: %v", err)
			}
			out = append(out, ir.Message{Role: ir.Role(it.Role), Content: blocks})

		case it.Text != "":
			// text-like object with only "text".
			out = append(out, ir.Message{Role: ir.RoleUser, Content: []ir.ContentBlock{{Type: ir.ContentText, Text: it.Text}}})

		default:
			continue
		}
	}

	return out, nil
}

func nonEmptyArgs(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

// outputText extracts text from a function_call_output's "output"
// field, which may be a bare string or an already-structured value.
func outputText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return trimmed
}

type wireContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

// parseContentItem handles a message-like item's "content", which may
// be a bare string or an array of input_text/input_image/input_file
// parts.
func parseContentItem(raw json.RawMessage) ([]ir.ContentBlock, error) {
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
		var parts []wireContentItem
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, err
		}
		var blocks []ir.ContentBlock
		for _, p := range parts {
			switch p.Type {
			case "input_text", "output_text", "text":
				blocks = append(blocks, ir.ContentBlock{Type: ir.ContentText, Text: p.Text})
			case "input_image":
				if p.ImageURL == "" {
					continue
				}
				blocks = append(blocks, ir.ContentBlock{Type: ir.ContentImageURL, ImageURL: p.ImageURL})
			case "input_file":
				ref := p.FileURL
				if ref == "" {
					ref = p.FileID
				}
				if ref == "" {
					ref = p.FileData
				}
				if ref == "" {
					continue
				}
				blocks = append(blocks, ir.ContentBlock{Type: ir.ContentText, Text: ref})
			}
		}
		return blocks, nil
	default:
		return nil, nil
	}
}
