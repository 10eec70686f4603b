package ir

// State is the request-lifetime flag bag carrying inter-transform
// control flags. The key set is closed (see the Key* constants below); a systems
// implementation would prefer a typed struct behind an opaque key
// system, but Go's map[string]interface{} with well-known constants
// gets the same safety with far less ceremony here.
type State map[string]interface{}

// Well-known State keys. Every key the pipeline reads or writes is
// named here so the set stays closed and greppable.
const (
	// KeyRetry, when true, asks the pipeline driver to run another
	// iteration (bounded by KeyMaxAttempts).
	KeyRetry = "retry"

	// KeySyntheticResponse, when true, asks the driver to skip the
	// upstream call and fabricate a completed response.
	KeySyntheticResponse = "synthetic_response"

	// KeyMaxAttempts is the numeric retry budget for this request.
	KeyMaxAttempts = "max_attempts"

	// KeyEnsureToolCall holds the *ensuretoolcall.State value (stored
	// as interface{} to avoid an import cycle between ir and
	// ensuretoolcall; callers type-assert).
	KeyEnsureToolCall = "ensure_tool_call"

	// KeyOriginalStream preserves the client's original stream flag
	// before the driver forces it off for the upstream call.
	KeyOriginalStream = "original_stream"
)

// Bool reads a boolean flag, defaulting to false when absent or of the
// wrong type.
func (s State) Bool(key string) bool {
	v, ok := s[key].(bool)
	return ok && v
}

// SetBool sets a boolean flag.
func (s State) SetBool(key string, v bool) {
	s[key] = v
}

// Int reads an integer flag, defaulting to 0 when absent. Accepts
// both int and float64 (the latter from JSON-decoded config).
func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SetInt sets an integer flag.
func (s State) SetInt(key string, v int) {
	s[key] = v
}
