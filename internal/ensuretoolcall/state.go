// Package ensuretoolcall implements the termination-tool enforcement
// subsystem: it guarantees an agent-style client either
// gets a tool call to keep its loop going, or a clearly marked final
// answer, by injecting a synthetic termination tool, escalating
// reminders on bare-text replies, and extracting the final answer text
// out of the termination call's arguments.
package ensuretoolcall

import "github.com/nextlevelbuilder/llmgw/internal/ir"

const defaultTerminationTool = "finish"

// State is the per-request ensure-tool-call bag, stored under
// ir.KeyEnsureToolCall in Request.State.
type State struct {
	TerminationTool     string
	PendingReminder      bool
	ReminderCount        int
	FinalAnswerRequired  bool
	ReminderHistory      []string
}

// NewState builds a State with the given termination tool name,
// defaulting to "finish" when empty.
func NewState(terminationTool string) *State {
	if terminationTool == "" {
		terminationTool = defaultTerminationTool
	}
	return &State{TerminationTool: terminationTool}
}

// Attach installs state on req under the reserved key.
func Attach(req *ir.Request, st *State) {
	req.State[ir.KeyEnsureToolCall] = st
}

// Get retrieves the ensure-tool-call state from req, if present.
func Get(req *ir.Request) (*State, bool) {
	v, ok := req.State[ir.KeyEnsureToolCall]
	if !ok {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
