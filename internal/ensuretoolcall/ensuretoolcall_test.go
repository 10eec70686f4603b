package ensuretoolcall

import (
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
	"github.com/nextlevelbuilder/llmgw/internal/transform"
)

func newReq() *ir.Request {
	req := ir.NewRequest("req-1", ir.OpChat)
	req.Messages = append(req.Messages, ir.Message{
		Role:    ir.RoleUser,
		Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "do the task"}},
	})
	return req
}

func TestIngress_InjectsTerminationToolAndBaseInstruction(t *testing.T) {
	req := newReq()
	st := NewState("")
	Attach(req, st)

	if err := (ingressTransform{}).Apply(&transform.Context{Request: req}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	found := false
	for _, tool := range req.Tools {
		if tool.Name == "finish" {
			found = true
		}
	}
	if !found {
		t.Error("expected a synthetic \"finish\" tool to be injected")
	}
	if len(req.System) == 0 {
		t.Error("expected a base system instruction to be injected")
	}
}

func TestIngress_DoesNotDuplicateTerminationTool(t *testing.T) {
	req := newReq()
	req.Tools = append(req.Tools, ir.ToolDefinition{Type: "function", Name: "finish"})
	st := NewState("")
	Attach(req, st)

	if err := (ingressTransform{}).Apply(&transform.Context{Request: req}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	count := 0
	for _, tool := range req.Tools {
		if tool.Name == "finish" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("finish tool appears %d times, want 1", count)
	}
}

func TestIngress_AppendsEscalatingReminder(t *testing.T) {
	req := newReq()
	st := NewState("")
	st.PendingReminder = true
	Attach(req, st)

	if err := (ingressTransform{}).Apply(&transform.Context{Request: req}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st.PendingReminder {
		t.Error("PendingReminder should be cleared after the reminder is appended")
	}
	if st.ReminderCount != 1 {
		t.Errorf("ReminderCount = %d, want 1", st.ReminderCount)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != ir.RoleUser {
		t.Errorf("reminder message role = %q, want user", last.Role)
	}
}

func TestEgress_NoToolCallsSetsRetryAndReminder(t *testing.T) {
	req := newReq()
	st := NewState("")
	Attach(req, st)

	resp := &ir.Response{Output: []ir.OutputBlock{{
		Type: ir.OutputMessage, Role: ir.RoleAssistant,
		Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "working on it"}},
	}}}

	if err := (egressTransform{}).Apply(&transform.Context{Request: req, Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !req.State.Bool(ir.KeyRetry) {
		t.Error("expected retry to be requested when the model replied with zero tool calls")
	}
	if !st.PendingReminder {
		t.Error("expected a reminder to be queued")
	}
}

func TestEgress_TerminationCallWithFinalAnswerExtractsText(t *testing.T) {
	req := newReq()
	st := NewState("finish")
	Attach(req, st)

	resp := &ir.Response{
		FinishReason: "tool_calls",
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage, Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "finish", Arguments: `{"final_answer":"42"}`}},
		}},
	}

	if err := (egressTransform{}).Apply(&transform.Context{Request: req, Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if req.State.Bool(ir.KeyRetry) {
		t.Error("did not expect a retry once a final answer was extracted")
	}
	mb := resp.FirstMessageBlock()
	if mb.FirstText() != "42" {
		t.Errorf("extracted content text = %q, want 42", mb.FirstText())
	}
	if len(mb.ToolCalls) != 0 {
		t.Error("expected the termination tool call to be stripped from ToolCalls")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop after demotion", resp.FinishReason)
	}
}

func TestEgress_TerminationCallWithoutAnswerOrPriorContentRequestsRetry(t *testing.T) {
	req := newReq()
	st := NewState("finish")
	Attach(req, st)

	resp := &ir.Response{
		Output: []ir.OutputBlock{{
			Type: ir.OutputMessage, Role: ir.RoleAssistant,
			ToolCalls: []ir.ToolCall{{ID: "call_1", Name: "finish", Arguments: `{}`}},
		}},
	}

	if err := (egressTransform{}).Apply(&transform.Context{Request: req, Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !req.State.Bool(ir.KeyRetry) {
		t.Error("expected a retry when the termination call carries neither a final answer nor prior content")
	}
	if !st.FinalAnswerRequired {
		t.Error("expected FinalAnswerRequired to be set")
	}
}

func TestIsTerminationCall(t *testing.T) {
	tests := []struct {
		name string
		tool string
		want bool
	}{
		{"finish", "finish", true},
		{"FINISH", "finish", true},
		{"Final", "finish", true},
		{"call_42", "finish", true},
		{"42", "finish", true},
		{"some_other_tool", "finish", false},
	}
	for _, tt := range tests {
		if got := isTerminationCall(tt.name, tt.tool); got != tt.want {
			t.Errorf("isTerminationCall(%q, %q) = %v, want %v", tt.name, tt.tool, got, tt.want)
		}
	}
}

func TestExtractFinalAnswer(t *testing.T) {
	tests := []struct {
		args     string
		wantText string
		wantOK   bool
	}{
		{`{"final_answer":"done"}`, "done", true},
		{`{"summary":"all good"}`, "all good", true},
		{`{"irrelevant":"x"}`, "", false},
		{``, "", false},
		{`{"final_answer":123}`, "", false},
	}
	for _, tt := range tests {
		text, ok := extractFinalAnswer(tt.args)
		if ok != tt.wantOK || text != tt.wantText {
			t.Errorf("extractFinalAnswer(%q) = (%q, %v), want (%q, %v)", tt.args, text, ok, tt.wantText, tt.wantOK)
		}
	}
}

func TestTodoWriteSatisfied(t *testing.T) {
	calls := []ir.ToolCall{{Name: "TodoWrite"}}
	if !todoWriteSatisfied("kimi-k2", calls, "here is a summary of changes") {
		t.Error("expected kimi TodoWrite + summary text to satisfy the heuristic")
	}
	if todoWriteSatisfied("gpt-4", calls, "here is a summary of changes") {
		t.Error("non-kimi model should not satisfy the heuristic")
	}
	if todoWriteSatisfied("kimi-k2", calls, "nothing relevant here") {
		t.Error("text without a summary/changes marker should not satisfy the heuristic")
	}
}

func TestAlreadyTerminated_ZeroToolCallsAfterLastUserTurn(t *testing.T) {
	req := newReq()
	req.Messages = append(req.Messages, ir.Message{
		Role:    ir.RoleAssistant,
		Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "final answer here"}},
	})
	if !alreadyTerminated(req) {
		t.Error("expected already-terminated when the last assistant turn has zero tool calls")
	}
}

func TestEgress_SyntheticResponseIsNotMutated(t *testing.T) {
	req := newReq()
	st := NewState("")
	Attach(req, st)

	resp := &ir.Response{
		FinishReason: "stop",
		Output: []ir.OutputBlock{{
			Type:    ir.OutputMessage,
			Role:    ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "I acknowledge."}},
			Status:  ir.StatusCompleted,
		}},
		Metadata: ir.ResponseMetadata{Synthetic: true},
	}

	if err := (egressTransform{}).Apply(&transform.Context{Request: req, Response: resp}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if req.State.Bool(ir.KeyRetry) {
		t.Error("a synthetic response must never request a retry: ingress already judged this request terminated")
	}
	if st.PendingReminder {
		t.Error("a synthetic response must never queue a reminder")
	}
	mb := resp.FirstMessageBlock()
	if mb == nil || len(mb.Content) != 1 || mb.Content[0].Text != "I acknowledge." {
		t.Error("egress must not mutate the canned synthetic response body")
	}
}
