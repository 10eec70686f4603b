package streaming

import (
	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

type chatChunk struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Model   string          `json:"model"`
	Choices []chatChunkChoice `json:"choices"`
}

type chatChunkChoice struct {
	Index        int           `json:"index"`
	Delta        chatDelta     `json:"delta"`
	FinishReason *string       `json:"finish_reason"`
}

type chatDelta struct {
	Role             string         `json:"role,omitempty"`
	Content          string         `json:"content,omitempty"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	ToolCalls        []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// writeOpenAIChat synthesizes the OpenAI-Chat streaming sequence: a
// role-only delta, then content/reasoning/tool_call deltas chunked
// per opts, then a finish_reason delta, then [DONE].
func writeOpenAIChat(s *sink, resp *ir.Response, opts Options) error {
	size := opts.chunkSize()

	emit := func(delta chatDelta, finish *string) error {
		return s.event("", chatChunk{
			ID:     resp.ID,
			Object: "chat.completion.chunk",
			Model:  resp.Model,
			Choices: []chatChunkChoice{{
				Index:        0,
				Delta:        delta,
				FinishReason: finish,
			}},
		})
	}

	if err := emit(chatDelta{Role: "assistant"}, nil); err != nil {
		return err
	}

	mb := resp.FirstMessageBlock()
	if mb != nil {
		if reasoning := reasoningOf(mb.Content); reasoning != "" {
			for _, c := range chunk(reasoning, size) {
				if err := emit(chatDelta{ReasoningContent: c}, nil); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}
		}

		if text := textOf(mb.Content); text != "" {
			for _, c := range chunk(text, size) {
				if err := emit(chatDelta{Content: c}, nil); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}
		}

		for i, tc := range mb.ToolCalls {
			announce := chatDelta{ToolCalls: []chatToolCall{{
				Index:    i,
				ID:       tc.ID,
				Type:     "function",
				Function: chatFunctionCall{Name: tc.Name, Arguments: ""},
			}}}
			if err := emit(announce, nil); err != nil {
				return err
			}
			if err := s.sleep(opts.Delay); err != nil {
				return err
			}
			for _, c := range chunk(tc.Arguments, size) {
				argDelta := chatDelta{ToolCalls: []chatToolCall{{
					Index:    i,
					Function: chatFunctionCall{Arguments: c},
				}}}
				if err := emit(argDelta, nil); err != nil {
					return err
				}
				if err := s.sleep(opts.Delay); err != nil {
					return err
				}
			}
		}
	}

	finish := resp.FinishReason
	if finish == "" {
		finish = "stop"
	}
	if err := emit(chatDelta{}, &finish); err != nil {
		return err
	}

	return s.raw("data: [DONE]\n\n")
}
