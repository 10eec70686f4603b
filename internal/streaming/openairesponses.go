package streaming

import (
	"encoding/json"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// respItem mirrors the output items built in openairesponses.Render
// (message/reasoning/function_call), but each is carried as a single
// text payload to stream incrementally instead of a finished string.
type respItem struct {
	kind       string // "message", "reasoning", "function_call"
	text       string // output_text or reasoning_text payload for message/reasoning
	callID     string
	name       string
	arguments  string
}

// writeOpenAIResponses synthesizes the OpenAI-Responses streaming
// event sequence: sequence-numbered events, a
// placeholder output_item.added per item, item-type-specific deltas,
// content_part add/done framing, then response.completed.
func writeOpenAIResponses(s *sink, resp *ir.Response, req *ir.Request, opts Options) error {
	size := opts.chunkSize()
	seq := 0
	next := func() int { seq++; return seq }

	status := "completed"
	if resp.FinishReason == "length" {
		status = "incomplete"
	}

	baseResponse := map[string]interface{}{
		"id":     resp.ID,
		"object": "response",
		"model":  resp.Model,
		"status": status,
	}

	if err := s.event("response.created", map[string]interface{}{
		"type": "response.created", "sequence_number": next(), "response": baseResponse,
	}); err != nil {
		return err
	}
	if err := s.event("response.in_progress", map[string]interface{}{
		"type": "response.in_progress", "sequence_number": next(), "response": baseResponse,
	}); err != nil {
		return err
	}

	var items []respItem
	var concatenated string

	if mb := resp.FirstMessageBlock(); mb != nil {
		if reasoning := reasoningOf(mb.Content); reasoning != "" {
			items = append(items, respItem{kind: "reasoning", text: reasoning})
		}
		if text := textOf(mb.Content); text != "" {
			items = append(items, respItem{kind: "message", text: text})
			concatenated += text
		}
		for _, tc := range mb.ToolCalls {
			items = append(items, respItem{kind: "function_call", callID: tc.ID, name: tc.Name, arguments: tc.Arguments})
		}
	}

	for itemIdx, item := range items {
		placeholder := map[string]interface{}{"type": item.kind}
		switch item.kind {
		case "function_call":
			placeholder["call_id"] = item.callID
			placeholder["name"] = item.name
			placeholder["arguments"] = ""
		default:
			placeholder["content"] = []interface{}{}
		}
		if err := s.event("response.output_item.added", map[string]interface{}{
			"type": "response.output_item.added", "sequence_number": next(),
			"output_index": itemIdx, "item": placeholder,
		}); err != nil {
			return err
		}

		switch item.kind {
		case "message", "reasoning":
			partType := "output_text"
			deltaEvent, doneEvent := "response.output_text.delta", "response.output_text.done"
			if item.kind == "reasoning" {
				partType = "reasoning_text"
				deltaEvent, doneEvent = "response.reasoning_text.delta", "response.reasoning_text.done"
			}

			if err := s.event("response.content_part.added", map[string]interface{}{
				"type": "response.content_part.added", "sequence_number": next(),
				"output_index": itemIdx, "content_index": 0,
				"part": map[string]interface{}{"type": partType, "text": ""},
			}); err != nil {
				return err
			}

			for _, c := range chunk(item.text, size) {
				if err := s.event(deltaEvent, map[string]interface{}{
					"type": deltaEvent, "sequence_number": next(),
					"output_index": itemIdx, "content_index": 0, "delta": c,
				}); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}

			if err := s.event(doneEvent, map[string]interface{}{
				"type": doneEvent, "sequence_number": next(),
				"output_index": itemIdx, "content_index": 0, "text": item.text,
			}); err != nil {
				return err
			}
			if err := s.event("response.content_part.done", map[string]interface{}{
				"type": "response.content_part.done", "sequence_number": next(),
				"output_index": itemIdx, "content_index": 0,
				"part": map[string]interface{}{"type": partType, "text": item.text},
			}); err != nil {
				return err
			}

		case "function_call":
			for _, c := range chunk(item.arguments, size) {
				if err := s.event("response.function_call_arguments.delta", map[string]interface{}{
					"type": "response.function_call_arguments.delta", "sequence_number": next(),
					"output_index": itemIdx, "delta": c,
				}); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}
			if err := s.event("response.function_call_arguments.done", map[string]interface{}{
				"type": "response.function_call_arguments.done", "sequence_number": next(),
				"output_index": itemIdx, "arguments": item.arguments,
			}); err != nil {
				return err
			}
		}

		doneItem := map[string]interface{}{"type": item.kind, "status": "completed"}
		if item.kind == "function_call" {
			doneItem["call_id"] = item.callID
			doneItem["name"] = item.name
			doneItem["arguments"] = item.arguments
		}
		if err := s.event("response.output_item.done", map[string]interface{}{
			"type": "response.output_item.done", "sequence_number": next(),
			"output_index": itemIdx, "item": doneItem,
		}); err != nil {
			return err
		}
	}

	final := map[string]interface{}{
		"id": resp.ID, "object": "response", "model": resp.Model,
		"status": status, "output_text": concatenated,
	}
	if resp.Usage != nil {
		data, _ := json.Marshal(map[string]int{
			"input_tokens": resp.Usage.InputTokens, "output_tokens": resp.Usage.OutputTokens, "total_tokens": resp.Usage.TotalTokens,
		})
		var usage map[string]interface{}
		_ = json.Unmarshal(data, &usage)
		final["usage"] = usage
	}
	if err := s.event("response.completed", map[string]interface{}{
		"type": "response.completed", "sequence_number": next(), "response": final,
	}); err != nil {
		return err
	}

	return s.raw("data: [DONE]\n\n")
}
