// Package pipeline wires a parsed client request through the ingress
// transforms, a provider adapter invocation, the egress transforms,
// and (on retry) loops, before rendering the result back into the
// client's dialect and optionally synthesizing an SSE stream.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/ensuretoolcall"
	"github.com/nextlevelbuilder/llmgw/internal/gatewayerr"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
	"github.com/nextlevelbuilder/llmgw/internal/providers"
	"github.com/nextlevelbuilder/llmgw/internal/streaming"
	"github.com/nextlevelbuilder/llmgw/internal/transform"
)

// Input is everything the driver needs for one client request. Model
// registry resolution is the caller's job (typically the HTTP front
// end), so UpstreamModel and ProviderKey already reflect that
// decision by the time Input is built.
type Input struct {
	Dialect        dialect.Tag
	ProviderKey    string
	UpstreamModel  string
	Body           []byte
	Headers        map[string]string
	Op             ir.Operation
	Profile        string
	EnsureToolCall bool
	ProviderConfig map[string]interface{}

	// MaxAttempts overrides the driver's default retry budget for this
	// request (e.g. a per-variant config override); zero means "use
	// the driver default".
	MaxAttempts int

	Stream Options
}

// Options configures the streaming synthesizer's chunking/pacing;
// callers that don't care can leave this zero.
type Options = streaming.Options

// Output is the rendered client-facing result. Response and Request
// are populated even when Streaming is false, so a caller that wants
// to stream a response Serve already rendered as plain JSON (e.g. to
// log both forms) can still reach the IR; the common case only needs
// Body/ContentType/Status, or WriteStream when Streaming is true.
type Output struct {
	Body        []byte
	ContentType string
	Status      int
	Streaming   bool
	Response    *ir.Response
	Request     *ir.Request
}

// Driver is the pipeline entry point. DefaultMaxAttempts is the retry
// budget used when Input.MaxAttempts is zero and EnsureToolCall is
// requested; it should already be clamped to [1,5] by the caller
// (config.Env.MaxAttemptsDefault does this).
type Driver struct {
	DefaultMaxAttempts int
}

// New builds a Driver with the given default retry budget, clamping
// it to [1,5].
func New(defaultMaxAttempts int) *Driver {
	if defaultMaxAttempts < 1 {
		defaultMaxAttempts = 1
	}
	if defaultMaxAttempts > 5 {
		defaultMaxAttempts = 5
	}
	return &Driver{DefaultMaxAttempts: defaultMaxAttempts}
}

// Serve runs one client request through the full pipeline: parse,
// ingress/egress transform loop with retry, render, and (if the
// client asked for stream:true) SSE synthesis.
func (d *Driver) Serve(ctx context.Context, in Input) (*Output, error) {
	adapter, err := dialect.Get(in.Dialect)
	if err != nil {
		return nil, gatewayerr.ModelUnknownf("pipeline: %v", err)
	}

	req, err := adapter.Parse(in.Body, in.Headers)
	if err != nil {
		return nil, gatewayerr.InvalidSchemaf("pipeline: parse request: %v", err)
	}

	if in.Profile != "" {
		req.Profile = in.Profile
	}

	maxAttempts := d.DefaultMaxAttempts
	if in.MaxAttempts > 0 {
		maxAttempts = in.MaxAttempts
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		if maxAttempts > 5 {
			maxAttempts = 5
		}
	}

	if in.EnsureToolCall {
		st := ensuretoolcall.NewState("")
		ensuretoolcall.Attach(req, st)
		req.State.SetInt(ir.KeyMaxAttempts, maxAttempts)
	}

	// Request id generation already happened inside Parse. Capture the
	// original stream flag before any ingress transform can mutate it,
	// since the upstream call always runs non-streamed.
	req.State.SetBool(ir.KeyOriginalStream, req.Stream)
	originalStream := req.Stream
	req.Stream = false
	req.Model = in.UpstreamModel

	if err := req.Validate(); err != nil {
		return nil, gatewayerr.InvalidSchemaf("pipeline: %v", err)
	}

	provider, err := providers.Get(in.ProviderKey)
	if err != nil {
		return nil, gatewayerr.ProviderConfigMissingf("pipeline: %v", err)
	}

	resp, gwErr := d.runLoop(ctx, req, provider, in.ProviderConfig, maxAttempts)
	if gwErr != nil {
		return nil, gwErr
	}

	body, err := adapter.Render(resp, req)
	if err != nil {
		return nil, gatewayerr.PipelineInternal(fmt.Errorf("pipeline: render response: %w", err))
	}

	status := 200
	if resp.Error != nil {
		status = 502
	}

	if !originalStream {
		return &Output{
			Body:        body,
			ContentType: contentTypeFor(in.Dialect),
			Status:      status,
			Response:    resp,
			Request:     req,
		}, nil
	}

	return &Output{
		Body:        body,
		ContentType: "text/event-stream",
		Status:      status,
		Streaming:   true,
		Response:    resp,
		Request:     req,
	}, nil
}

// WriteStream synthesizes the SSE body for out (produced by Serve with
// Streaming==true) into w, honoring ctx cancellation mid-stream.
func (d *Driver) WriteStream(ctx context.Context, w io.Writer, in Input, resp *ir.Response, req *ir.Request) error {
	return streaming.Write(ctx, w, in.Dialect, resp, req, in.Stream)
}

func contentTypeFor(tag dialect.Tag) string {
	return "application/json"
}

// runLoop runs ingress transforms, invokes the provider (or
// synthesizes a response), runs egress transforms, and repeats while
// the retry flag is set and attempts remain.
func (d *Driver) runLoop(ctx context.Context, req *ir.Request, provider providers.Provider, providerConfig map[string]interface{}, maxAttempts int) (*ir.Response, *gatewayerr.Error) {
	var resp *ir.Response

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tctx := &transform.Context{Request: req, Response: resp, Attempt: attempt}

		if err := transform.RunIngress(tctx); err != nil {
			return nil, gatewayerr.PipelineInternal(fmt.Errorf("ingress transforms: %w", err))
		}

		if req.State.Bool(ir.KeySyntheticResponse) {
			resp = syntheticResponse(req)
			req.State.SetBool(ir.KeySyntheticResponse, false)
		} else {
			sctx, span := startAttemptSpan(ctx, req, attempt)
			raw, err := provider.Invoke(sctx, req, providerConfig)
			if err != nil {
				span.RecordError(err)
				span.End()
				return nil, mapProviderError(err)
			}

			resp, err = provider.ToIR(raw, req)
			span.End()
			if err != nil {
				return nil, gatewayerr.InvalidResponsef("pipeline: %v", err)
			}
		}

		tctx.Response = resp
		if err := transform.RunEgress(tctx); err != nil {
			return nil, gatewayerr.PipelineInternal(fmt.Errorf("egress transforms: %w", err))
		}

		if attempt < maxAttempts && req.State.Bool(ir.KeyRetry) {
			req.State.SetBool(ir.KeyRetry, false)
			slog.Debug("pipeline: retrying", "request_id", req.ID, "attempt", attempt)
			continue
		}
		req.State.SetBool(ir.KeyRetry, false)
		break
	}

	return resp, nil
}

// syntheticResponse builds the canned "acknowledge" completion used
// when an ingress transform set the synthetic-response flag: the
// pipeline skips the upstream call entirely for this attempt.
func syntheticResponse(req *ir.Request) *ir.Response {
	return &ir.Response{
		Model:        req.Model,
		Op:           req.Op,
		FinishReason: "stop",
		Output: []ir.OutputBlock{{
			Type:    ir.OutputMessage,
			Role:    ir.RoleAssistant,
			Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "I acknowledge."}},
			Status:  ir.StatusCompleted,
		}},
		Metadata: ir.ResponseMetadata{Synthetic: true},
	}
}

func mapProviderError(err error) *gatewayerr.Error {
	if httpErr, ok := err.(*providers.HTTPError); ok {
		return gatewayerr.ProviderHTTP(httpErr.Status, providers.ExtractErrorMessage([]byte(httpErr.Body)))
	}
	return gatewayerr.ProviderNetwork(0, err)
}
