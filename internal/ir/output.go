package ir

// OutputBlockType discriminates the variants of OutputBlock.
type OutputBlockType string

const (
	OutputMessage  OutputBlockType = "message"
	OutputToolCall OutputBlockType = "tool_call"
	OutputReasoning OutputBlockType = "reasoning"
	OutputDelta    OutputBlockType = "delta"
)

// OutputStatus mirrors the OpenAI-Responses message status vocabulary;
// other dialects collapse it onto finish_reason at render time.
type OutputStatus string

const (
	StatusCompleted OutputStatus = "completed"
	StatusIncomplete OutputStatus = "incomplete"
)

// OutputBlock is one tagged element of a Response's Output list.
type OutputBlock struct {
	Type OutputBlockType

	// Message fields (Type == OutputMessage).
	Role      Role
	Content   []ContentBlock
	ToolCalls []ToolCall
	Status    OutputStatus

	// ToolCall fields (Type == OutputToolCall). A standalone
	// tool_call block is used by the Responses dialect's item-per-
	// output-entry shape; the Chat/Anthropic dialects fold tool calls
	// into the message block's ToolCalls above instead.
	CallID string
	Name   string
	Args   string

	// Reasoning fields (Type == OutputReasoning).
	Summary []string

	// Delta fields (Type == OutputDelta), used internally by the
	// streaming synthesizer's intermediate representation.
	DeltaContent []ContentBlock
}

// FirstText concatenates all ContentText blocks in order, mirroring
// Message.FirstText for the Response side of the IR.
func (b OutputBlock) FirstText() string {
	var out string
	for _, c := range b.Content {
		if c.Type == ContentText {
			out += c.Text
		}
	}
	return out
}
