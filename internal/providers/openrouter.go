package providers

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func init() {
	Register("openrouter", OpenRouterAdapter{})
}

// OpenRouterAdapter wraps OpenAICompatAdapter, merging OpenRouter's
// routing-hint "provider" object into the request body and supporting
// its model-shortcut suffix convention.
type OpenRouterAdapter struct{}

func (OpenRouterAdapter) Invoke(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	base := OpenAICompatAdapter{name: "openrouter"}
	baseURL := strings.TrimRight(stringConfig(config, "base_url", "https://openrouter.ai/api/v1"), "/")
	apiKey := stringConfig(config, "api_key", "")

	body := base.buildBody(req, config)
	if shortcut := stringConfig(config, "model_shortcut", ""); shortcut != "" {
		if model, ok := body["model"].(string); ok {
			body["model"] = model + ":" + shortcut
		}
	}
	if provider := buildProviderRouting(config); provider != nil {
		body["provider"] = provider
	}

	path := pathForOperation(req.Op)
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	return postJSON(ctx, DefaultRetryConfig(), baseURL+path, headers, body)
}

// buildProviderRouting assembles OpenRouter's "provider" routing
// object from resolved provider_config fields. An explicit "order"
// list takes precedence over a comma-separated "providers" string.
func buildProviderRouting(config map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}

	if order, ok := config["order"].([]interface{}); ok && len(order) > 0 {
		out["order"] = order
	} else if providers := stringConfig(config, "providers", ""); providers != "" {
		var list []string
		for _, p := range strings.Split(providers, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				list = append(list, p)
			}
		}
		if len(list) > 0 {
			out["order"] = list
		}
	}

	if sort := stringConfig(config, "sort", ""); sort != "" {
		out["sort"] = sort
	}
	if v, ok := config["allow_fallbacks"].(bool); ok {
		out["allow_fallbacks"] = v
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func (OpenRouterAdapter) ToIR(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	return parseOpenAIWireResponse(raw, req)
}
