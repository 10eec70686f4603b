// Package providers implements the upstream provider adapters: each
// adapter builds a wire request from the IR, invokes the upstream
// HTTP endpoint, and parses the raw response back into the IR.
// Adapters are hand-rolled net/http callers; no generated SDK
// clients.
package providers

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// RawResponse is what invoke() returns before it has been interpreted
// against the IR: status, body, headers, and the request body that
// produced it (kept for error-body extraction and logging).
type RawResponse struct {
	Status            int
	Body              []byte
	Headers           map[string]string
	EchoedRequestBody []byte
}

// Provider is the common contract every upstream adapter implements.
type Provider interface {
	// Invoke builds the upstream wire body from req, calls the
	// upstream endpoint, and returns the raw response. config is the
	// variant's resolved (env-expanded) provider_config map.
	Invoke(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error)

	// ToIR parses a raw upstream response into an IR Response.
	ToIR(raw *RawResponse, req *ir.Request) (*ir.Response, error)
}

var registry = map[string]Provider{}

// Register adds a provider adapter to the registry under key.
func Register(key string, p Provider) {
	registry[key] = p
}

// Get looks up a provider adapter by its registry key (the model
// variant's "provider" field).
func Get(key string) (Provider, error) {
	p, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("providers: no adapter registered for key %q", key)
	}
	return p, nil
}
