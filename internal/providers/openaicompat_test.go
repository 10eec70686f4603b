package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

func TestOpenAICompatAdapter_InvokeSendsBearerAuthAndChatPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	req := ir.NewRequest("req-1", ir.OpChat)
	req.Model = "gpt-test"
	req.Messages = append(req.Messages, ir.Message{
		Role:    ir.RoleUser,
		Content: []ir.ContentBlock{{Type: ir.ContentText, Text: "hello"}},
	})

	a := OpenAICompatAdapter{name: "openai"}
	config := map[string]interface{}{"base_url": srv.URL, "api_key": "sk-test"}

	raw, err := a.Invoke(context.Background(), req, config)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody["model"] != "gpt-test" {
		t.Errorf("body model = %v, want gpt-test", gotBody["model"])
	}

	resp, err := a.ToIR(raw, req)
	if err != nil {
		t.Fatalf("ToIR: %v", err)
	}
	if resp.FirstMessageBlock().FirstText() != "hi" {
		t.Errorf("text = %q, want hi", resp.FirstMessageBlock().FirstText())
	}
}

func TestOpenAICompatAdapter_InvokeUsesResponsesPathForResponsesOp(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"x","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	req := ir.NewRequest("req-1", ir.OpResponses)
	req.Model = "gpt-test"
	a := OpenAICompatAdapter{name: "openai"}
	if _, err := a.Invoke(context.Background(), req, map[string]interface{}{"base_url": srv.URL}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotPath != "/responses" {
		t.Errorf("path = %q, want /responses", gotPath)
	}
}

func TestOpenAICompatAdapter_NonSuccessStatusBecomesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","code":"rate_limit"}}`))
	}))
	defer srv.Close()

	req := ir.NewRequest("req-1", ir.OpChat)
	req.Model = "gpt-test"
	a := OpenAICompatAdapter{name: "openai"}
	_, err := a.Invoke(context.Background(), req, map[string]interface{}{"base_url": srv.URL})
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("err = %T, want *HTTPError", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", httpErr.Status)
	}
	if ExtractErrorMessage([]byte(httpErr.Body)) != "rate limited" {
		t.Errorf("ExtractErrorMessage = %q, want rate limited", ExtractErrorMessage([]byte(httpErr.Body)))
	}
}

func TestOpenAICompatAdapter_ToIR_NoChoicesErrors(t *testing.T) {
	a := OpenAICompatAdapter{name: "openai"}
	raw := &RawResponse{Body: []byte(`{"id":"x","choices":[]}`)}
	if _, err := a.ToIR(raw, ir.NewRequest("req-1", ir.OpChat)); err == nil {
		t.Fatal("expected an error when the response has zero choices")
	}
}
