// Package openairesponses implements the OpenAI Responses client
// dialect adapter.
package openairesponses

import "encoding/json"

type wireRequest struct {
	Model string `json:"model"`

	// Three input shapes, at most one populated per request.
	Messages json.RawMessage `json:"messages,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`

	Tools  []wireTool `json:"tools,omitempty"`
	Stream bool       `json:"stream,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_output_tokens,omitempty"`
}

type wireTool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Strict      bool                   `json:"strict,omitempty"`
}

// wireInputItem covers every shape an element of the top-level "input"
// array (or the chat-style "messages" array) can take.
type wireInputItem struct {
	Type string `json:"type,omitempty"`
	Role string `json:"role,omitempty"`

	Content json.RawMessage `json:"content,omitempty"`
	Text    string          `json:"text,omitempty"`

	// function_call_output
	CallID   string          `json:"call_id,omitempty"`
	CallIDAlt string         `json:"callId,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`

	// function_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// file-ish reference fields
	FileURL  string `json:"file_url,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	FileData string `json:"file_data,omitempty"`

	ImageURL string `json:"image_url,omitempty"`
}

// UnmarshalJSON accepts a bare JSON string as an input item, treating
// it as a text-like item carrying only that text.
func (i *wireInputItem) UnmarshalJSON(data []byte) error {
	var s string
	if json.Unmarshal(data, &s) == nil {
		*i = wireInputItem{Text: s}
		return nil
	}
	type plain wireInputItem
	return json.Unmarshal(data, (*plain)(i))
}

func (i wireInputItem) callID() string {
	if i.CallID != "" {
		return i.CallID
	}
	return i.CallIDAlt
}

// --- Response wire shapes ---

type wireResponse struct {
	ID         string       `json:"id"`
	Object     string       `json:"object"`
	Model      string       `json:"model"`
	Status     string       `json:"status"`
	Output     []wireOutItem `json:"output"`
	OutputText string       `json:"output_text,omitempty"`
	Usage      *wireUsage   `json:"usage,omitempty"`
}

type wireOutItem struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Role    string             `json:"role,omitempty"`
	Status  string             `json:"status,omitempty"`
	Content []wireOutContent   `json:"content,omitempty"`

	// function_call item fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireOutContent struct {
	Type string `json:"type"` // "output_text" | "reasoning_text"
	Text string `json:"text"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
