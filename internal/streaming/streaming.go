// Package streaming implements the SSE synthesizer: it converts an
// already-completed IR response into the dialect-specific SSE byte
// sequence the client would have seen had the upstream call itself
// been streamed. The core never streams upstream; this package is
// what lets it still answer a client's stream:true request.
//
// Expressed as a pull-based generator over an io.Writer rather than a
// goroutine-driven channel: the only suspension point is the
// inter-chunk delay and the downstream write, both of which happen on
// the caller's goroutine.
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// Options configures chunk granularity and pacing.
type Options struct {
	ChunkSize int           // characters per chunk; defaults to 20 when <= 0
	Delay     time.Duration // inter-chunk delay
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return 20
	}
	return o.ChunkSize
}

// closedErr is returned internally by the write helper when the
// downstream connection is gone; Write translates it into a clean nil
// return rather than propagating it to the caller.
type closedErr struct{ cause error }

func (e closedErr) Error() string { return fmt.Sprintf("streaming: downstream closed: %v", e.cause) }

// sink wraps the destination writer with SSE framing and best-effort
// flushing, and turns write failures into a sentinel the per-dialect
// writers can propagate up to Write without further handling.
type sink struct {
	w   io.Writer
	ctx context.Context
}

func (s *sink) event(name string, payload interface{}) error {
	if err := s.ctx.Err(); err != nil {
		return closedErr{err}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("streaming: marshal event: %w", err)
	}
	var frame string
	if name == "" {
		frame = fmt.Sprintf("data: %s\n\n", data)
	} else {
		frame = fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
	}
	if _, err := io.WriteString(s.w, frame); err != nil {
		return closedErr{err}
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *sink) raw(line string) error {
	if _, err := io.WriteString(s.w, line); err != nil {
		return closedErr{err}
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *sink) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-s.ctx.Done():
		return closedErr{s.ctx.Err()}
	case <-time.After(d):
		return nil
	}
}

// chunk splits s into pieces of at most size runes each, preserving
// order; an empty string yields no chunks.
func chunk(s string, size int) []string {
	if s == "" {
		return nil
	}
	r := []rune(s)
	var out []string
	for i := 0; i < len(r); i += size {
		end := i + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}

// Write synthesizes an SSE stream for resp (in the dialect tag
// identifies) into w, pacing chunks per opts. Downstream cancellation
// (ctx or a broken writer) ends the stream cleanly with a nil error.
func Write(ctx context.Context, w io.Writer, tag dialect.Tag, resp *ir.Response, req *ir.Request, opts Options) error {
	s := &sink{w: w, ctx: ctx}

	var err error
	switch tag {
	case dialect.OpenAIChat:
		err = writeOpenAIChat(s, resp, opts)
	case dialect.Anthropic:
		err = writeAnthropic(s, resp, opts)
	case dialect.OpenAIResponses:
		err = writeOpenAIResponses(s, resp, req, opts)
	default:
		return fmt.Errorf("streaming: unknown dialect %q", tag)
	}

	if _, ok := err.(closedErr); ok {
		return nil
	}
	return err
}

// textOf concatenates text-type content blocks in order.
func textOf(blocks []ir.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ir.ContentText {
			out += b.Text
		}
	}
	return out
}

func reasoningOf(blocks []ir.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ir.ContentReasoning {
			out += b.Text
		}
	}
	return out
}
