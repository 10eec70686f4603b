// Package dialect defines the client-adapter contract and a registry
// so the pipeline driver can look an adapter up by dialect tag without
// dynamic dispatch in the hot path
// lookup by dialect tag).
package dialect

import (
	"fmt"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// Tag identifies a client wire dialect.
type Tag string

const (
	OpenAIChat      Tag = "openai_chat"
	OpenAIResponses Tag = "openai_responses"
	Anthropic       Tag = "anthropic"
)

// Adapter parses a dialect-native request body into the IR and renders
// an IR response back into the dialect-native body.
type Adapter interface {
	// Parse converts a dialect request body + headers into an IR
	// Request. It returns a *gatewayerr.Error with Kind InvalidSchema
	// when required fields are missing or mistyped.
	Parse(body []byte, headers map[string]string) (*ir.Request, error)

	// Render converts an IR Response, together with the IR Request
	// that produced it, into the dialect-native response body.
	Render(resp *ir.Response, req *ir.Request) ([]byte, error)
}

var registry = map[Tag]Adapter{}

// Register adds an adapter to the registry. Called from each dialect
// sub-package's init().
func Register(tag Tag, a Adapter) {
	registry[tag] = a
}

// Get looks up a registered adapter by tag.
func Get(tag Tag) (Adapter, error) {
	a, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("dialect: no adapter registered for %q", tag)
	}
	return a, nil
}
