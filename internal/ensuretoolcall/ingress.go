package ensuretoolcall

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
	"github.com/nextlevelbuilder/llmgw/internal/transform"
)

func init() {
	transform.Register(ingressTransform{})
}

type ingressTransform struct{}

func (ingressTransform) Name() string   { return "ensure_tool_call_request" }
func (ingressTransform) Stage() transform.Stage { return transform.Ingress }
func (ingressTransform) Priority() int  { return 100 }

func (ingressTransform) Applies(ctx *transform.Context) bool {
	_, ok := Get(ctx.Request)
	return ok
}

func (ingressTransform) Apply(ctx *transform.Context) error {
	req := ctx.Request
	st, _ := Get(req)

	ensureTerminationTool(req, st.TerminationTool)
	ensureBaseInstruction(req, st.TerminationTool)

	if st.PendingReminder {
		text := reminderText(st)
		req.Messages = append(req.Messages, ir.Message{
			Role:    ir.RoleUser,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: text}},
		})
		st.ReminderHistory = append(st.ReminderHistory, text)
		st.PendingReminder = false
		st.FinalAnswerRequired = false
		st.ReminderCount++
	}

	if alreadyTerminated(req) {
		req.State.SetBool(ir.KeySyntheticResponse, true)
	}

	return nil
}

func ensureTerminationTool(req *ir.Request, terminationTool string) {
	for _, t := range req.Tools {
		if strings.EqualFold(t.Name, terminationTool) {
			return
		}
	}
	req.Tools = append(req.Tools, ir.ToolDefinition{
		Type:        "function",
		Name:        terminationTool,
		Description: "Signal that the task is fully complete and report the final answer.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"final_answer": map[string]interface{}{
					"type":        "string",
					"description": "The final answer to report to the user.",
				},
				"summary": map[string]interface{}{
					"type":        "string",
					"description": "A summary of the completed task, used if final_answer is absent.",
				},
			},
		},
	})
}

const baseInstructionPrefix = "Always reply with at least one tool call"

func ensureBaseInstruction(req *ir.Request, terminationTool string) {
	for _, b := range req.System {
		if strings.HasPrefix(b.Text, baseInstructionPrefix) {
			return
		}
	}
	instruction := fmt.Sprintf("%s; call `%s` only when the task is fully complete.", baseInstructionPrefix, terminationTool)
	req.System = append(req.System, ir.ContentBlock{Type: ir.ContentText, Text: instruction})
}

func reminderText(st *State) string {
	if st.FinalAnswerRequired {
		return fmt.Sprintf("A final answer is required. Call `%s` with a `final_answer` argument summarizing the result.", st.TerminationTool)
	}
	return fmt.Sprintf("You have not made a tool call yet this turn. Reply with at least one tool call, or call `%s` if the task is complete.", st.TerminationTool)
}
