package transform

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	Register(normalizeRequest{})
	Register(normalizeResponse{})
}

// normalizeRequest is the "Normalize" ingress transform, priority 0:
// drop null/imageless content blocks, coerce missing text, drop an
// empty tools list.
type normalizeRequest struct{}

func (normalizeRequest) Name() string      { return "normalize" }
func (normalizeRequest) Stage() Stage      { return Ingress }
func (normalizeRequest) Priority() int     { return 0 }
func (normalizeRequest) Applies(*Context) bool { return true }

func (normalizeRequest) Apply(ctx *Context) error {
	req := ctx.Request
	req.System = normalizeBlocks(req.System)
	for i := range req.Messages {
		req.Messages[i].Content = normalizeBlocks(req.Messages[i].Content)
	}
	if len(req.Tools) == 0 {
		req.Tools = nil
	}
	return nil
}

// normalizeBlocks applies the content-block normalization rules
// shared by ingress and egress: drop image_url blocks lacking a URL,
// coerce an absent text field to empty string.
func normalizeBlocks(blocks []ir.ContentBlock) []ir.ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ir.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == ir.ContentImageURL && b.ImageURL == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

// normalizeResponse is the "Normalize-response" egress transform,
// priority 0.
type normalizeResponse struct{}

func (normalizeResponse) Name() string      { return "normalize_response" }
func (normalizeResponse) Stage() Stage      { return Egress }
func (normalizeResponse) Priority() int     { return 0 }
func (normalizeResponse) Applies(*Context) bool { return true }

func (normalizeResponse) Apply(ctx *Context) error {
	resp := ctx.Response
	if resp == nil {
		return nil
	}

	hasToolCalls := false
	anyIncomplete := false

	for i := range resp.Output {
		blk := &resp.Output[i]
		if blk.Type != ir.OutputMessage {
			continue
		}
		blk.Content = normalizeBlocks(blk.Content)

		// A provider adapter may already know this block was cut short
		// even when it reports no top-level finish_reason at all (its
		// wire format signals truncation per-item rather than per
		// response); that signal must survive into anyIncomplete below
		// rather than being clobbered by the blanket reassignment that
		// follows.
		preExistingIncomplete := blk.Status == ir.StatusIncomplete

		// A tool call whose arguments fail to round-trip through JSON
		// is the other content-level truncation signal: arguments cut
		// off mid-stream, independent of whatever finish_reason the
		// provider did or didn't report.
		blockTruncated := false
		for j := range blk.ToolCalls {
			args, truncated := reserializeArgs(blk.ToolCalls[j].Arguments)
			blk.ToolCalls[j].Arguments = args
			blockTruncated = blockTruncated || truncated
		}
		if len(blk.ToolCalls) > 0 {
			hasToolCalls = true
		}

		if resp.FinishReason == "length" || preExistingIncomplete || blockTruncated {
			blk.Status = ir.StatusIncomplete
		} else {
			blk.Status = ir.StatusCompleted
		}
		if blk.Status == ir.StatusIncomplete {
			anyIncomplete = true
		}
	}

	if resp.FinishReason == "" {
		switch {
		case hasToolCalls:
			resp.FinishReason = "tool_calls"
		case anyIncomplete:
			resp.FinishReason = "length"
		default:
			resp.FinishReason = "stop"
		}
	}

	return nil
}

// reserializeArgs round-trips tool-call arguments through JSON; a
// payload that fails to parse is wrapped in the documented fallback
// shape rather than dropped. The second return value reports whether
// the original arguments were malformed — a tool call cut off
// mid-stream is the content-level sign that its message block is
// incomplete, independent of whatever finish_reason the provider did
// or didn't report.
func reserializeArgs(args string) (string, bool) {
	if args == "" {
		return "{}", false
	}
	var probe interface{}
	if err := json.Unmarshal([]byte(args), &probe); err != nil {
		wrapped, merr := json.Marshal(map[string]string{"_raw": args})
		if merr != nil {
			return `{"_raw":""}`, true
		}
		return string(wrapped), true
	}
	canon, err := json.Marshal(probe)
	if err != nil {
		return args, false
	}
	return string(canon), false
}
