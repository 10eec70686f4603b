package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var sharedClient = &http.Client{Timeout: 120 * time.Second}

// postJSON marshals body and POSTs it to url with headers merged in,
// sending it once through RetryDo (which performs no retry). A
// response with status >= 400 becomes an *HTTPError rather than a raw
// transport error.
func postJSON(ctx context.Context, cfg RetryConfig, url string, headers map[string]string, body interface{}) (*RawResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("providers: marshal request: %w", err)
	}

	return RetryDo(ctx, cfg, func() (*RawResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("providers: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := sharedClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("providers: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("providers: read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, &HTTPError{
				Status:     resp.StatusCode,
				Body:       string(respBody),
				RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		respHeaders := make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			respHeaders[k] = resp.Header.Get(k)
		}

		return &RawResponse{
			Status:            resp.StatusCode,
			Body:              respBody,
			Headers:           respHeaders,
			EchoedRequestBody: data,
		}, nil
	})
}

// stringConfig reads a string field out of a resolved provider_config
// map, falling back to def when absent or of the wrong type.
func stringConfig(config map[string]interface{}, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolConfig(config map[string]interface{}, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}
