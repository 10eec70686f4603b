package providers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
	"github.com/nextlevelbuilder/llmgw/internal/sigcache"
)

const vertexScope = "https://www.googleapis.com/auth/cloud-platform"

var maasModelRegex = regexp.MustCompile(`(?i).*-maas$`)

func init() {
	Register("vertex", VertexAdapter{})
}

// VertexAdapter routes between the Vertex-hosted OpenAI-compatible
// MaaS surface and the native Vertex Generative (Gemini) protocol
// based on the model name shape.
type VertexAdapter struct{}

// SignatureCache, when non-nil, backs Gemini thought-signature
// reattachment across turns.
// Wired once at process startup; nil is safe (signatures are simply
// never reattached, and the adapter always emits the documented
// skip marker on a cache miss).
var SignatureCache *sigcache.Cache

func isMaaSModel(model string) bool {
	return maasModelRegex.MatchString(model)
}

func (VertexAdapter) Invoke(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	if isMaaSModel(req.Model) {
		return invokeVertexMaaS(ctx, req, config)
	}
	return invokeVertexNative(ctx, req, config)
}

func (VertexAdapter) ToIR(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	if isMaaSModel(req.Model) {
		return parseOpenAIWireResponse(raw, req)
	}
	return parseVertexNativeResponse(raw, req)
}

var (
	tokenSourceGroup singleflight.Group
	tokenSourceCache sync.Map // credsValue -> oauth2.TokenSource
)

// vertexTokenSource returns a cached token source for credsValue,
// coalescing concurrent first-time builds for the same credentials
// through a singleflight group so a burst of requests arriving before
// any token source exists yet doesn't fire off one ADC/file-parse
// round trip per request.
func vertexTokenSource(ctx context.Context, config map[string]interface{}) (oauth2.TokenSource, error) {
	credsValue := stringConfig(config, "credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if ts, ok := tokenSourceCache.Load(credsValue); ok {
		return ts.(oauth2.TokenSource), nil
	}

	v, err, _ := tokenSourceGroup.Do(credsValue, func() (interface{}, error) {
		ts, err := buildVertexTokenSource(ctx, credsValue)
		if err != nil {
			return nil, err
		}
		tokenSourceCache.Store(credsValue, ts)
		return ts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(oauth2.TokenSource), nil
}

func buildVertexTokenSource(ctx context.Context, credsValue string) (oauth2.TokenSource, error) {
	if credsValue == "" {
		ts, err := google.DefaultTokenSource(ctx, vertexScope)
		if err != nil {
			return nil, fmt.Errorf("vertex: default credentials: %w", err)
		}
		return ts, nil
	}

	var data []byte
	trimmed := strings.TrimSpace(credsValue)
	if strings.HasPrefix(trimmed, "{") {
		data = []byte(credsValue)
	} else {
		var err error
		data, err = os.ReadFile(credsValue)
		if err != nil {
			return nil, fmt.Errorf("vertex: read credentials file %s: %w", credsValue, err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, vertexScope)
	if err != nil {
		return nil, fmt.Errorf("vertex: parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func vertexHost(location string) string {
	if strings.EqualFold(location, "global") {
		return "aiplatform.googleapis.com"
	}
	return location + "-aiplatform.googleapis.com"
}

func invokeVertexMaaS(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	project := stringConfig(config, "project_id", "")
	location := stringConfig(config, "location", "global")
	if project == "" {
		return nil, fmt.Errorf("vertex: project_id is required")
	}

	ts, err := vertexTokenSource(ctx, config)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("vertex: acquire token: %w", err)
	}

	base := OpenAICompatAdapter{name: "vertex-maas"}
	body := base.buildBody(req, config)

	url := fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/endpoints/openapi%s",
		vertexHost(location), project, location, pathForOperation(req.Op))

	headers := map[string]string{
		"Authorization":        "Bearer " + token.AccessToken,
		"X-Goog-User-Project":  project,
	}
	return postJSON(ctx, DefaultRetryConfig(), url, headers, body)
}
