package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

const (
	anthropicAPIBase    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

func init() {
	Register("anthropic", AnthropicAdapter{})
}

// AnthropicAdapter implements Provider against the native Anthropic
// Messages API, building the wire body by hand rather than through
// an SDK client.
type AnthropicAdapter struct{}

func (AnthropicAdapter) Invoke(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	baseURL := strings.TrimRight(stringConfig(config, "base_url", anthropicAPIBase), "/")
	apiKey := stringConfig(config, "api_key", "")

	body := buildAnthropicBody(req)

	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
	return postJSON(ctx, DefaultRetryConfig(), baseURL+"/messages", headers, body)
}

// buildAnthropicBody renders the IR into an Anthropic Messages
// request: system joined with newlines, assistant tool_calls become
// tool_use blocks, tool-role messages become tool_result blocks in a
// user turn. Streaming is never requested upstream.
func buildAnthropicBody(req *ir.Request) map[string]interface{} {
	body := map[string]interface{}{
		"model":    req.Model,
		"stream":   false,
		"messages": renderAnthropicMessages(req.Messages),
	}

	if sys := joinTextLines(req.System); sys != "" {
		body["system"] = sys
	}
	if req.Parameters.MaxTokens != nil {
		body["max_tokens"] = *req.Parameters.MaxTokens
	} else {
		body["max_tokens"] = 4096
	}
	if req.Parameters.Temperature != nil {
		body["temperature"] = *req.Parameters.Temperature
	}
	if req.Parameters.TopP != nil {
		body["top_p"] = *req.Parameters.TopP
	}
	if req.Parameters.TopK != nil {
		body["top_k"] = *req.Parameters.TopK
	}
	if len(req.Tools) > 0 {
		body["tools"] = anthropicToolDefs(req.Tools)
	}

	return body
}

func joinTextLines(blocks []ir.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == ir.ContentText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func anthropicToolDefs(tools []ir.ToolDefinition) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]interface{}{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.Parameters,
		})
	}
	return out
}

// renderAnthropicMessages converts the IR message list into
// Anthropic's {role, content[]} shape; a tool-role message becomes a
// tool_result block appended to the previous rendered turn when that
// turn is a user turn, or else placed in a new user turn.
func renderAnthropicMessages(msgs []ir.Message) []map[string]interface{} {
	var out []map[string]interface{}

	for _, m := range msgs {
		switch m.Role {
		case ir.RoleTool:
			result := map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": m.ToolCallID,
				"content":     m.FirstText(),
			}
			if n := len(out); n > 0 && out[n-1]["role"] == "user" {
				content := out[n-1]["content"].([]interface{})
				out[n-1]["content"] = append(content, result)
				continue
			}
			out = append(out, map[string]interface{}{"role": "user", "content": []interface{}{result}})

		case ir.RoleAssistant:
			var content []interface{}
			for _, b := range m.Content {
				if b.Type == ir.ContentText {
					content = append(content, map[string]interface{}{"type": "text", "text": b.Text})
				}
			}
			for _, tc := range m.ToolCalls {
				var input interface{} = map[string]interface{}{}
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &input)
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": input,
				})
			}
			out = append(out, map[string]interface{}{"role": "assistant", "content": content})

		default:
			var content []interface{}
			for _, b := range m.Content {
				switch b.Type {
				case ir.ContentText:
					content = append(content, map[string]interface{}{"type": "text", "text": b.Text})
				case ir.ContentImageURL:
					content = append(content, anthropicImageBlock(b))
				}
			}
			out = append(out, map[string]interface{}{"role": "user", "content": content})
		}
	}

	return out
}

func anthropicImageBlock(b ir.ContentBlock) map[string]interface{} {
	return map[string]interface{}{
		"type": "image",
		"source": map[string]interface{}{
			"type": "url",
			"url":  b.ImageURL,
		},
	}
}

// --- response shapes ---

type anthropicResponse struct {
	ID         string              `json:"id"`
	Model      string              `json:"model"`
	StopReason string              `json:"stop_reason"`
	Content    []anthropicOutBlock `json:"content"`
	Usage      anthropicUsage      `json:"usage"`
}

type anthropicOutBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (AnthropicAdapter) ToIR(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	var ar anthropicResponse
	if err := json.Unmarshal(raw.Body, &ar); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	resp := &ir.Response{
		ID:           ar.ID,
		Model:        req.Model,
		Op:           req.Op,
		FinishReason: finishReasonFromStop(ar.StopReason),
		Usage:        &ir.Usage{InputTokens: ar.Usage.InputTokens, OutputTokens: ar.Usage.OutputTokens, TotalTokens: ar.Usage.InputTokens + ar.Usage.OutputTokens},
	}

	block := ir.OutputBlock{Type: ir.OutputMessage, Role: ir.RoleAssistant}
	for _, b := range ar.Content {
		switch b.Type {
		case "text":
			block.Content = append(block.Content, ir.ContentBlock{Type: ir.ContentText, Text: b.Text})
		case "tool_use":
			args := "{}"
			if len(b.Input) > 0 {
				args = string(b.Input)
			}
			block.ToolCalls = append(block.ToolCalls, ir.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	resp.Output = []ir.OutputBlock{block}

	return resp, nil
}

func finishReasonFromStop(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	case "":
		return ""
	default:
		return "stop"
	}
}
