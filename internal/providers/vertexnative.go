package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/llmgw/internal/ir"
)

// shouldReattachSignature reports whether the Gemini thought-signature
// reattachment dance applies to model: gemini-3 models excluding
// image variants.
func shouldReattachSignature(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "gemini-3") && !strings.Contains(m, "image")
}

const skipSignatureMarker = "skip_thought_signature_validator"

func lookupSignature(toolCallID string) string {
	if SignatureCache == nil {
		slog.Warn("vertex: signature cache not configured, emitting skip marker", "tool_call_id", toolCallID)
		return skipSignatureMarker
	}
	sig, ok := SignatureCache.Get(toolCallID)
	if !ok {
		slog.Warn("vertex: signature cache miss, emitting skip marker", "tool_call_id", toolCallID)
		return skipSignatureMarker
	}
	return sig
}

// vertexModelResource normalizes a logical model name into a fully
// qualified Vertex model resource path.
func vertexModelResource(model, project, location string) string {
	if strings.HasPrefix(model, "projects/") {
		return model
	}
	name := strings.TrimPrefix(model, "google/")
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", project, location, name)
}

// vertexNativeLocation forces "global" for Gemini-family names,
// passing other locations through unchanged.
func vertexNativeLocation(model, configured string) string {
	m := strings.ToLower(model)
	if strings.Contains(m, "google/") || strings.Contains(m, "gemini") {
		return "global"
	}
	return configured
}

func invokeVertexNative(ctx context.Context, req *ir.Request, config map[string]interface{}) (*RawResponse, error) {
	project := stringConfig(config, "project_id", "")
	if project == "" {
		return nil, fmt.Errorf("vertex: project_id is required")
	}
	location := vertexNativeLocation(req.Model, stringConfig(config, "location", "us-central1"))

	ts, err := vertexTokenSource(ctx, config)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("vertex: acquire token: %w", err)
	}

	modelResource := vertexModelResource(req.Model, project, location)
	url := fmt.Sprintf("https://%s/v1/%s:generateContent", vertexHost(location), modelResource)

	body := buildVertexNativeBody(req)

	headers := map[string]string{
		"Authorization":       "Bearer " + token.AccessToken,
		"X-Goog-User-Project": project,
	}
	return postJSON(ctx, DefaultRetryConfig(), url, headers, body)
}

// buildVertexNativeBody renders the IR into the native Vertex
// Generative (Gemini) request shape.
func buildVertexNativeBody(req *ir.Request) map[string]interface{} {
	toolNameByID := map[string]string{}
	var contents []map[string]interface{}

	for i := 0; i < len(req.Messages); {
		m := req.Messages[i]
		switch m.Role {
		case ir.RoleSystem, ir.RoleDeveloper:
			i++

		case ir.RoleAssistant:
			var parts []interface{}
			for _, b := range m.Content {
				if b.Type == ir.ContentText && b.Text != "" {
					parts = append(parts, map[string]interface{}{"text": b.Text})
				}
			}
			for idx, tc := range m.ToolCalls {
				toolNameByID[tc.ID] = tc.Name
				var args interface{} = map[string]interface{}{}
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &args)
				}
				part := map[string]interface{}{
					"functionCall": map[string]interface{}{"name": tc.Name, "args": args},
				}
				if idx == 0 && shouldReattachSignature(req.Model) {
					part["thoughtSignature"] = lookupSignature(tc.ID)
				}
				parts = append(parts, part)
			}
			contents = append(contents, map[string]interface{}{"role": "model", "parts": parts})
			i++

		case ir.RoleTool:
			var parts []interface{}
			for i < len(req.Messages) && req.Messages[i].Role == ir.RoleTool {
				tm := req.Messages[i]
				parts = append(parts, map[string]interface{}{
					"functionResponse": map[string]interface{}{
						"name":     toolNameByID[tm.ToolCallID],
						"response": map[string]interface{}{"content": tm.FirstText()},
					},
				})
				i++
			}
			contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})

		default:
			var parts []interface{}
			for _, b := range m.Content {
				switch b.Type {
				case ir.ContentText:
					if b.Text != "" {
						parts = append(parts, map[string]interface{}{"text": b.Text})
					}
				case ir.ContentImageURL:
					parts = append(parts, map[string]interface{}{
						"fileData": map[string]interface{}{"mimeType": b.ImageMime, "fileUri": b.ImageURL},
					})
				}
			}
			contents = append(contents, map[string]interface{}{"role": "user", "parts": parts})
			i++
		}
	}

	body := map[string]interface{}{"contents": contents}

	if sysText := joinTextLines(append(append([]ir.ContentBlock{}, req.System...), systemLikeBlocks(req.Messages)...)); sysText != "" {
		body["systemInstruction"] = map[string]interface{}{"parts": []interface{}{map[string]interface{}{"text": sysText}}}
	}

	if len(req.Tools) > 0 {
		var decls []map[string]interface{}
		for _, t := range req.Tools {
			decls = append(decls, map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  CleanSchemaForProvider("gemini", t.Parameters),
			})
		}
		body["tools"] = []map[string]interface{}{{"functionDeclarations": decls}}
	}

	genCfg := map[string]interface{}{}
	if req.Parameters.MaxTokens != nil {
		genCfg["maxOutputTokens"] = *req.Parameters.MaxTokens
	}
	if req.Parameters.Temperature != nil {
		genCfg["temperature"] = *req.Parameters.Temperature
	}
	if req.Parameters.TopP != nil {
		genCfg["topP"] = *req.Parameters.TopP
	}
	if req.Parameters.TopK != nil {
		genCfg["topK"] = *req.Parameters.TopK
	}
	if len(genCfg) > 0 {
		body["generationConfig"] = genCfg
	}

	return body
}

// systemLikeBlocks pulls system/developer role messages' text out of
// the message list for folding into systemInstruction.
func systemLikeBlocks(msgs []ir.Message) []ir.ContentBlock {
	var out []ir.ContentBlock
	for _, m := range msgs {
		if m.Role == ir.RoleSystem || m.Role == ir.RoleDeveloper {
			out = append(out, m.Content...)
		}
	}
	return out
}

// --- response shapes ---

type vertexNativeResponse struct {
	Candidates []vertexCandidate `json:"candidates"`
	UsageMetadata *vertexUsageMetadata `json:"usageMetadata"`
}

type vertexCandidate struct {
	Content      vertexContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type vertexContent struct {
	Role  string       `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text             string                 `json:"text,omitempty"`
	FunctionCall     *vertexFunctionCall    `json:"functionCall,omitempty"`
	ThoughtSignature string                 `json:"thoughtSignature,omitempty"`
}

type vertexFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type vertexUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func parseVertexNativeResponse(raw *RawResponse, req *ir.Request) (*ir.Response, error) {
	var vr vertexNativeResponse
	if err := json.Unmarshal(raw.Body, &vr); err != nil {
		return nil, fmt.Errorf("vertex: decode response: %w", err)
	}
	if len(vr.Candidates) == 0 {
		return nil, fmt.Errorf("vertex: response has no candidates")
	}

	cand := vr.Candidates[0]
	resp := &ir.Response{
		Model:        req.Model,
		Op:           req.Op,
		FinishReason: vertexFinishReason(cand.FinishReason),
	}

	block := ir.OutputBlock{Type: ir.OutputMessage, Role: ir.RoleAssistant}
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			block.Content = append(block.Content, ir.ContentBlock{Type: ir.ContentText, Text: p.Text})
			continue
		}
		if p.FunctionCall == nil {
			continue
		}
		id := uuid.NewString()
		argsJSON, _ := json.Marshal(p.FunctionCall.Args)
		block.ToolCalls = append(block.ToolCalls, ir.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: string(argsJSON)})
		if p.ThoughtSignature != "" && SignatureCache != nil {
			if err := SignatureCache.Set(id, p.ThoughtSignature, time.Now().Unix()); err != nil {
				slog.Warn("vertex: failed to persist thought signature", "tool_call_id", id, "error", err)
			}
		}
	}
	if len(block.ToolCalls) > 0 {
		resp.FinishReason = "tool_calls"
	}
	resp.Output = []ir.OutputBlock{block}

	if vr.UsageMetadata != nil {
		resp.Usage = &ir.Usage{
			InputTokens:  vr.UsageMetadata.PromptTokenCount,
			OutputTokens: vr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  vr.UsageMetadata.TotalTokenCount,
		}
	}

	return resp, nil
}

func vertexFinishReason(reason string) string {
	switch strings.ToUpper(reason) {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "":
		return ""
	default:
		return "stop"
	}
}
