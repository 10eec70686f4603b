package ir

// ToolCall is a single tool invocation requested by the model.
// Invariant (post-normalization): Arguments is valid JSON text, or the
// literal `{"_raw": "<original>"}` when the original payload could not
// be repaired into JSON.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string

	// Metadata carries provider-specific passback data that must
	// survive a round trip through the IR — e.g. Gemini's
	// thoughtSignature, keyed "thought_signature".
	Metadata map[string]string
}

// ToolDefinition describes a tool made available to the model.
type ToolDefinition struct {
	Type        string // always "function" today; forward-compatible
	Name        string
	Description string
	Strict      bool

	// Parameters is a JSON-Schema object. Top-level "$schema" is
	// stripped by client adapters on parse.
	Parameters map[string]interface{}
}
