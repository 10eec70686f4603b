package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	Register("openai", OpenAICompatAdapter{name: "openai"})
}

// OpenAICompatAdapter implements Provider for any OpenAI-compatible
// HTTP endpoint (OpenAI itself, Groq, DeepSeek, vLLM, etc.). The wire
// body is built by hand rather than through a generated SDK client.
type OpenAICompatAdapter struct {
	name string
}

func (a OpenAICompatAdapter) providerName(config map[string]interface{}) string {
	if n := stringConfig(config, "provider_name", ""); n != "" {
		return n
	}
	return a.name
}

func (a OpenAICompatAdapter) Invoke(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	baseURL := strings.TrimRight(stringConfig(config, "base_url", "https://api.openai.com/v1"), "/")
	apiKey := stringConfig(config, "api_key", "")

	body := a.buildBody(req, config)
	path := pathForOperation(req.Op)

	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	return postJSON(ctx, DefaultRetryConfig(), baseURL+path, headers, body)
}

func pathForOperation(op ir.Operation) string {
	switch op {
	case ir.OpMessages:
		return "/messages"
	case ir.OpResponses:
		return "/responses"
	default:
		return "/chat/completions"
	}
}

// buildBody constructs the shared OpenAI chat-completion-style wire
// body; every OpenAI-compatible dispatch (regardless of originating
// dialect) is packed through this one assistant-tool-call shape.
func (a OpenAICompatAdapter) buildBody(req *ir.Request, config map[string]interface{}) map[string]interface{} {
	providerName := a.providerName(config)

	var messages []map[string]interface{}
	if sysText := joinText(req.System); sysText != "" {
		messages = append(messages, map[string]interface{}{"role": "system", "content": sysText})
	}
	for _, m := range req.Messages {
		messages = append(messages, renderWireMessage(m))
	}

	body := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
		"stream":   false,
	}

	if len(req.Tools) > 0 {
		body["tools"] = CleanToolSchemas(providerName, req.Tools)
		body["tool_choice"] = "auto"
	}

	if req.Parameters.MaxTokens != nil {
		body[OptMaxTokens] = *req.Parameters.MaxTokens
	}
	if req.Parameters.Temperature != nil {
		body[OptTemperature] = *req.Parameters.Temperature
	}
	if req.Parameters.TopP != nil {
		body["top_p"] = *req.Parameters.TopP
	}
	if level, ok := req.Parameters.Thinking.(string); ok && level != "" && level != "off" {
		body[OptReasoningEffort] = level
	}

	return body
}

func joinText(blocks []ir.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ir.ContentText {
			out += b.Text
		}
	}
	return out
}

// renderWireMessage packs one IR message into the OpenAI chat wire
// shape, including image parts and tool-call/tool-result framing.
func renderWireMessage(m ir.Message) map[string]interface{} {
	msg := map[string]interface{}{"role": string(m.Role)}

	hasImages := false
	for _, b := range m.Content {
		if b.Type == ir.ContentImageURL {
			hasImages = true
			break
		}
	}

	switch {
	case hasImages:
		var parts []map[string]interface{}
		for _, b := range m.Content {
			switch b.Type {
			case ir.ContentText:
				parts = append(parts, map[string]interface{}{"type": "text", "text": b.Text})
			case ir.ContentImageURL:
				parts = append(parts, map[string]interface{}{
					"type":      "image_url",
					"image_url": map[string]interface{}{"url": b.ImageURL},
				})
			}
		}
		msg["content"] = parts
	case m.FirstText() != "" || len(m.ToolCalls) == 0:
		msg["content"] = m.FirstText()
	}

	if len(m.ToolCalls) > 0 {
		var toolCalls []map[string]interface{}
		for _, tc := range m.ToolCalls {
			fn := map[string]interface{}{"name": tc.Name, "arguments": tc.Arguments}
			if sig, ok := tc.Metadata["thought_signature"]; ok && sig != "" {
				fn["thought_signature"] = sig
			}
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":       tc.ID,
				"type":     "function",
				"function": fn,
			})
		}
		msg["tool_calls"] = toolCalls
	}

	if m.ToolCallID != "" {
		msg["tool_call_id"] = m.ToolCallID
	}

	return msg
}

// --- wire response shapes ---

type wireResponse struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []wireChoice  `json:"choices"`
	Usage   *wireUsage    `json:"usage"`
}

type wireChoice struct {
	FinishReason string      `json:"finish_reason"`
	Message      wireMessage `json:"message"`
}

type wireMessage struct {
	Role             string         `json:"role"`
	Content          string         `json:"content"`
	ReasoningContent string         `json:"reasoning_content"`
	ToolCalls        []wireToolCall `json:"tool_calls"`
}

type wireToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name             string `json:"name"`
	Arguments        string `json:"arguments"`
	ThoughtSignature string `json:"thought_signature,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (a OpenAICompatAdapter) ToIR(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	return parseOpenAIWireResponse(raw, req)
}

// parseOpenAIWireResponse is shared by every adapter that speaks the
// OpenAI chat-completion response shape (OpenAI-compatible,
// OpenRouter, Vertex MaaS).
func parseOpenAIWireResponse(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("providers: decode response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return nil, fmt.Errorf("providers: response has no choices")
	}

	choice := wr.Choices[0]
	resp := &ir.Response{
		ID:           wr.ID,
		Model:        req.Model,
		Op:           req.Op,
		FinishReason: choice.FinishReason,
	}

	block := ir.OutputBlock{Type: ir.OutputMessage, Role: ir.RoleAssistant}
	if choice.Message.Content != "" {
		block.Content = append(block.Content, ir.ContentBlock{Type: ir.ContentText, Text: choice.Message.Content})
	}
	if choice.Message.ReasoningContent != "" {
		block.Content = append(block.Content, ir.ContentBlock{Type: ir.ContentReasoning, Text: choice.Message.ReasoningContent})
	}
	for _, tc := range choice.Message.ToolCalls {
		call := ir.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
		if tc.Function.ThoughtSignature != "" {
			call.Metadata = map[string]string{"thought_signature": tc.Function.ThoughtSignature}
		}
		block.ToolCalls = append(block.ToolCalls, call)
	}
	resp.Output = []ir.OutputBlock{block}

	if wr.Usage != nil {
		resp.Usage = &ir.Usage{
			InputTokens:  wr.Usage.PromptTokens,
			OutputTokens: wr.Usage.CompletionTokens,
			TotalTokens:  wr.Usage.TotalTokens,
		}
	}

	return resp, nil
}
