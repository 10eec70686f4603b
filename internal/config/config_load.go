package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/llmgw/internal/registry"
)

// LoadEnv reads every recognized variable from the process
// environment. Called once at startup; the result is passed by
// reference to collaborators that need it.
func LoadEnv() *Env {
	return &Env{
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),

		OpenRouterAPIKey:         os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:        os.Getenv("OPENROUTER_BASE_URL"),
		OpenRouterProviders:      os.Getenv("OPENROUTER_PROVIDERS"),
		OpenRouterOrder:          os.Getenv("OPENROUTER_ORDER"),
		OpenRouterSort:           os.Getenv("OPENROUTER_SORT"),
		OpenRouterAllowFallbacks: os.Getenv("OPENROUTER_ALLOW_FALLBACKS"),
		OpenRouterModelShortcut:  os.Getenv("OPENROUTER_MODEL_SHORTCUT"),

		VertexProjectID:    os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:     os.Getenv("VERTEX_LOCATION"),
		VertexChatEndpoint: os.Getenv("VERTEX_CHAT_ENDPOINT"),

		GoogleApplicationCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),

		ModelConfig:     os.Getenv("MODEL_CONFIG"),
		ModelConfigPath: os.Getenv("MODEL_CONFIG_PATH"),

		EnsureToolCallMaxAttempts: os.Getenv("ENSURE_TOOL_CALL_MAX_ATTEMPTS"),

		CacheDir: os.Getenv("CACHE_DIR"),
	}
}

// MaxAttemptsDefault parses ENSURE_TOOL_CALL_MAX_ATTEMPTS, clamping to
// [1,5]; an absent or unparsable value yields 3.
func (e *Env) MaxAttemptsDefault() int {
	const fallback = 3
	if e.EnsureToolCallMaxAttempts == "" {
		return fallback
	}
	n, err := strconv.Atoi(e.EnsureToolCallMaxAttempts)
	if err != nil {
		return fallback
	}
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// LoadModelConfig resolves the model-registry file from env.
// MODEL_CONFIG_PATH (a file path) takes precedence over MODEL_CONFIG
// (an inline document);, an inline document starting with
// "{" is JSON, otherwise YAML (which yaml.v3 parses either way, but
// decoding via encoding/json for the JSON case matches client intent
// and catches malformed JSON with a clearer error).
func LoadModelConfig(e *Env) (*ModelConfigFile, error) {
	if e.ModelConfigPath != "" {
		data, err := os.ReadFile(e.ModelConfigPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", e.ModelConfigPath, err)
		}
		return parseModelConfig(data)
	}
	if e.ModelConfig != "" {
		return parseModelConfig([]byte(e.ModelConfig))
	}
	return &ModelConfigFile{}, nil
}

func parseModelConfig(data []byte) (*ModelConfigFile, error) {
	var mc ModelConfigFile
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &mc); err != nil {
			return nil, fmt.Errorf("config: parse inline JSON model config: %w", err)
		}
		return &mc, nil
	}
	if err := yaml.Unmarshal(data, &mc); err != nil {
		return nil, fmt.Errorf("config: parse YAML model config: %w", err)
	}
	return &mc, nil
}

// ToVariantSpecs converts the loaded file into the registry's input
// shape.
func (mc *ModelConfigFile) ToVariantSpecs() []registry.VariantSpec {
	specs := make([]registry.VariantSpec, 0, len(mc.Models))
	for _, m := range mc.Models {
		specs = append(specs, registry.VariantSpec{
			Name:           m.Name,
			Provider:       m.Provider,
			Model:          m.Model,
			Weight:         m.Weight,
			Strategy:       registry.Strategy(m.Strategy),
			EnsureToolCall: m.EnsureToolCall,
			Profile:        m.Profile,
			ProviderConfig: m.ProviderConfig,
		})
	}
	return specs
}

// DefaultStrategyOrFirst returns the file's default_strategy as a
// registry.Strategy, defaulting to "first" when unset.
func (mc *ModelConfigFile) DefaultStrategyOrFirst() registry.Strategy {
	if mc.DefaultStrategy == "" {
		return registry.StrategyFirst
	}
	return registry.Strategy(mc.DefaultStrategy)
}

// WatchModelConfig watches MODEL_CONFIG_PATH (a no-op when unset,
// since an inline MODEL_CONFIG has nothing on disk to watch) and
// invokes onChange with the freshly reloaded file whenever it
// changes, feeding the registry's atomic-swap reload path. The
// returned watcher must be closed by the caller.
func WatchModelConfig(e *Env, onChange func(*ModelConfigFile, error)) (*fsnotify.Watcher, error) {
	if e.ModelConfigPath == "" {
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := w.Add(e.ModelConfigPath); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", e.ModelConfigPath, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mc, err := LoadModelConfig(e)
				onChange(mc, err)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w, nil
}
