// Package gatewayerr defines the closed error-kind taxonomy used
// across the gateway core and the HTTP status each kind
// maps to.
package gatewayerr

import "fmt"

// Kind is one of the taxonomy entries It is a kind, not
// a Go type hierarchy — every error in the core carries one.
type Kind string

const (
	InvalidSchema          Kind = "invalid_schema"
	ModelUnknown           Kind = "model_unknown"
	ProviderConfigMissing  Kind = "provider_config_missing"
	ProviderHTTPError      Kind = "provider_http_error"
	ProviderNetworkError   Kind = "provider_network_error"
	InvalidResponse        Kind = "invalid_response"
	PipelineInternalKind   Kind = "pipeline_internal"
	SyntheticResponse      Kind = "synthetic_response" // informational, not an error path
)

// Error is the core's error type. Status is the HTTP status the
// driver should surface to the client; it is derived at construction
// time, not recomputed later.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, status int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Status: status, Message: fmt.Sprintf(format, args...)}
}

// InvalidSchemaf fails fast at the driver with status 400.
func InvalidSchemaf(format string, args ...interface{}) *Error {
	return newErr(InvalidSchema, 400, format, args...)
}

// ModelUnknownf fails fast at the driver with status 400.
func ModelUnknownf(format string, args ...interface{}) *Error {
	return newErr(ModelUnknown, 400, format, args...)
}

// ProviderConfigMissingf maps to status 400: the request cannot be
// serviced until configuration is fixed.
func ProviderConfigMissingf(format string, args ...interface{}) *Error {
	return newErr(ProviderConfigMissing, 400, format, args...)
}

// ProviderHTTP wraps an upstream HTTP error, preserving the upstream
// status code unchanged.
func ProviderHTTP(status int, body string) *Error {
	return &Error{Kind: ProviderHTTPError, Status: status, Message: body}
}

// ProviderNetwork wraps a transport-level failure (no HTTP response).
// status defaults to 500 when the cause carries no status hint.
func ProviderNetwork(status int, cause error) *Error {
	if status == 0 {
		status = 500
	}
	return &Error{Kind: ProviderNetworkError, Status: status, Message: "provider unreachable", Cause: cause}
}

// InvalidResponsef maps to status 502: the IR response carries an
// error even though the upstream call itself did not fail.
func InvalidResponsef(format string, args ...interface{}) *Error {
	return newErr(InvalidResponse, 502, format, args...)
}

// PipelineInternal maps to status 500 with a generic client-facing
// message; cause detail is for logs only, never returned to the
// client.
func PipelineInternal(cause error) *Error {
	return &Error{Kind: PipelineInternalKind, Status: 500, Message: "internal pipeline error", Cause: cause}
}
