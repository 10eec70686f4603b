package ir

import "fmt"

// Operation tags the dialect a request originated from and must be
// rendered back into.
type Operation string

const (
	OpChat      Operation = "chat"      // OpenAI Chat Completions
	OpMessages  Operation = "messages"  // Anthropic Messages
	OpResponses Operation = "responses" // OpenAI Responses
)

// Parameters carries the sampling/generation knobs common across
// dialects. Fields left nil/zero are omitted by provider adapters.
type Parameters struct {
	Temperature *float64
	TopP        *float64
	TopK        *int
	MaxTokens   *int

	// Thinking carries opaque thinking/thinking_config fields from the
	// originating dialect (e.g. Anthropic's {type,budget_tokens} or a
	// bare thinking-level string); provider adapters interpret it.
	Thinking interface{}
}

// Metadata carries information about the request's origin that isn't
// part of its logical content.
type Metadata struct {
	OriginalDialect Operation
	OriginalHeaders map[string]string
}

// Request is the dialect-neutral intermediate representation of an
// inbound chat-completion request.
// Invariants: Operation matches the originating dialect
// (chat<->OpenAI-chat, messages<->Anthropic, responses<->OpenAI-
// Responses); Messages is never nil (may be empty); every tool has a
// non-empty Name; State contains only JSON-encodable values.
type Request struct {
	ID       string
	Model    string // logical model name, pre-resolution
	Profile  string
	Op       Operation
	System   []ContentBlock
	Messages []Message
	Tools    []ToolDefinition
	Stream   bool

	State      State
	Parameters Parameters
	Metadata   Metadata
}

// NewRequest builds a Request with an initialized, empty Messages
// slice and State map, satisfying the "Messages never nil" invariant.
func NewRequest(id string, op Operation) *Request {
	return &Request{
		ID:       id,
		Op:       op,
		Messages: []Message{},
		State:    make(State),
		Metadata: Metadata{OriginalDialect: op},
	}
}

// Validate checks the structural invariants that client adapters and
// transforms are expected to uphold. It does not re-validate dialect-
// specific shape; that happens during parse.
func (r *Request) Validate() error {
	if r.Messages == nil {
		return fmt.Errorf("ir: request %s: messages must not be nil", r.ID)
	}
	for i, t := range r.Tools {
		if t.Name == "" {
			return fmt.Errorf("ir: request %s: tool[%d] has empty name", r.ID, i)
		}
	}
	return nil
}
