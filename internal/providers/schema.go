package providers

import (
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// Wire body keys for provider-specific generation knobs. Kept as
// named constants rather than literals because several adapters
// share them.
const (
	OptMaxTokens       = "max_tokens"
	OptTemperature     = "temperature"
	OptReasoningEffort = "reasoning_effort"
	OptEnableThinking  = "enable_thinking"
	OptThinkingBudget  = "thinking_budget"
)

// CleanToolSchemas renders IR tool definitions into OpenAI-wire tool
// entries, applying CleanSchemaForProvider to each one's parameters.
func CleanToolSchemas(providerName string, tools []ir.ToolDefinition) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  CleanSchemaForProvider(providerName, t.Parameters),
			},
		})
	}
	return out
}

// CleanSchemaForProvider strips JSON-Schema keywords a given
// provider's function-calling surface rejects. When providerName
// contains "gemini" (the native Vertex path passes "gemini"),
// "additionalProperties" and "$schema" are removed at every nesting
// level; any other name, including the Vertex MaaS adapter's default
// "vertex-maas", passes the schema through unchanged.
func CleanSchemaForProvider(providerName string, schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	if !strings.Contains(strings.ToLower(providerName), "gemini") {
		return schema
	}
	return stripKeysRecursive(schema, "additionalProperties", "$schema")
}

func stripKeysRecursive(in map[string]interface{}, drop ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		skip := false
		for _, d := range drop {
			if k == d {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		switch vv := v.(type) {
		case map[string]interface{}:
			out[k] = stripKeysRecursive(vv, drop...)
		case []interface{}:
			arr := make([]interface{}, len(vv))
			for i, item := range vv {
				if m, ok := item.(map[string]interface{}); ok {
					arr[i] = stripKeysRecursive(m, drop...)
				} else {
					arr[i] = item
				}
			}
			out[k] = arr
		default:
			out[k] = v
		}
	}
	return out
}
