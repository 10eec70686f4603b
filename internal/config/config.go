// Package config centralizes the gateway's two configuration
// surfaces: the model-registry YAML file and the process
// environment variables the core's provider adapters read. Schema
// lives here, loading in config_load.go.
package config

// Env centralizes every environment variable the gateway recognizes,
// so call sites never reach for os.Getenv directly: config is loaded
// once at startup and passed by reference.
type Env struct {
	OpenAIBaseURL    string
	OpenAIAPIKey     string

	OpenRouterAPIKey         string
	OpenRouterBaseURL        string
	OpenRouterProviders      string
	OpenRouterOrder          string
	OpenRouterSort           string
	OpenRouterAllowFallbacks string
	OpenRouterModelShortcut  string

	VertexProjectID   string
	VertexLocation    string
	VertexChatEndpoint string

	GoogleApplicationCredentials string

	ModelConfig     string
	ModelConfigPath string

	EnsureToolCallMaxAttempts string

	CacheDir string
}

// ModelConfigFile is the YAML schema "Model-config file
// format".
type ModelConfigFile struct {
	DefaultStrategy string       `yaml:"default_strategy"`
	Models          []ModelEntry `yaml:"models"`
}

// ModelEntry is one `models:` list entry.
type ModelEntry struct {
	Name           string                 `yaml:"name"`
	Provider       string                 `yaml:"provider"`
	Model          string                 `yaml:"model"`
	Weight         int                    `yaml:"weight,omitempty"`
	Strategy       string                 `yaml:"strategy,omitempty"`
	EnsureToolCall bool                   `yaml:"ensure_tool_call,omitempty"`
	Profile        string                 `yaml:"profile,omitempty"`
	ProviderConfig map[string]interface{} `yaml:"provider_config,omitempty"`
}
