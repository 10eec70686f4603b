package ensuretoolcall

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// kimiSummaryRegex backs the Kimi/TodoWrite skip heuristic: a
// TodoWrite call on a kimi-family model whose message content
// mentions a summary or changes is treated as already-terminated.
var kimiSummaryRegex = regexp.MustCompile(`(?i)summary|changes`)

// finalAnswerFieldRegex matches the tool-argument keys that carry the
// model's final answer text.
var finalAnswerFieldRegex = regexp.MustCompile(`(?i)final[_\s-]?answer|final|answer|summary`)

// permissiveTerminatorRegex matches anonymous terminator ids some
// models emit instead of calling the configured tool by name.
var permissiveTerminatorRegex = regexp.MustCompile(`^(call_*)?[0-9]+$`)

func isKimiFamily(model string) bool {
	return strings.Contains(strings.ToLower(model), "kimi")
}

// todoWriteSatisfied reports whether an assistant turn's single tool
// call is a kimi TodoWrite call whose message text already carries a
// summary/changes marker.
func todoWriteSatisfied(model string, toolCalls []ir.ToolCall, text string) bool {
	if len(toolCalls) != 1 {
		return false
	}
	if !strings.EqualFold(toolCalls[0].Name, "TodoWrite") {
		return false
	}
	if !isKimiFamily(model) {
		return false
	}
	return kimiSummaryRegex.MatchString(text)
}

// isTerminationCall reports whether name identifies the configured
// termination tool: an exact case-insensitive match, the bare word
// "Final", or the permissive anonymous-terminator pattern.
func isTerminationCall(name, terminationTool string) bool {
	if strings.EqualFold(name, terminationTool) {
		return true
	}
	if strings.EqualFold(name, "final") {
		return true
	}
	return permissiveTerminatorRegex.MatchString(name)
}

// alreadyTerminated implements the ingress skip heuristic: scan
// messages after the last user message for an assistant turn that
// already satisfies termination, either by replying with zero tool
// calls or via the Kimi/TodoWrite pattern.
func alreadyTerminated(req *ir.Request) bool {
	lastUser := -1
	for i, m := range req.Messages {
		if m.Role == ir.RoleUser {
			lastUser = i
		}
	}
	for i := lastUser + 1; i < len(req.Messages); i++ {
		m := req.Messages[i]
		if m.Role != ir.RoleAssistant {
			continue
		}
		if len(m.ToolCalls) == 0 {
			return true
		}
		if todoWriteSatisfied(req.Model, m.ToolCalls, m.FirstText()) {
			return true
		}
	}
	return false
}

// extractFinalAnswer decodes a termination call's JSON arguments and
// returns the first string-valued field whose key matches
// finalAnswerFieldRegex, preserving declaration order (map iteration
// order is not reliable for "first").
func extractFinalAnswer(argsJSON string) (string, bool) {
	if argsJSON == "" {
		return "", false
	}
	dec := json.NewDecoder(strings.NewReader(argsJSON))
	tok, err := dec.Token()
	if err != nil {
		return "", false
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return "", false
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", false
		}
		key, ok := keyTok.(string)
		if !ok {
			return "", false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", false
		}
		if !finalAnswerFieldRegex.MatchString(key) {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s, true
		}
	}
	return "", false
}

// hasMeaningfulText reports whether any block in content is
// non-reasoning and meaningful's "meaningful content"
// test.
func hasMeaningfulText(content []ir.ContentBlock) bool {
	for _, b := range content {
		if b.IsMeaningfulNonReasoning() {
			return true
		}
	}
	return false
}
