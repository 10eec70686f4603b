package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/llmgw/internal/config"
	"github.com/nextlevelbuilder/llmgw/internal/dialect"
	"github.com/nextlevelbuilder/llmgw/internal/gatewayerr"
	"github.com/nextlevelbuilder/llmgw/internal/ir"
	"github.com/nextlevelbuilder/llmgw/internal/pipeline"
	"github.com/nextlevelbuilder/llmgw/internal/providers"
	"github.com/nextlevelbuilder/llmgw/internal/registry"
	"github.com/nextlevelbuilder/llmgw/internal/sigcache"
)

var serveAddr string

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end over the gateway core",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
	cmd.Flags().StringVar(&serveAddr, "addr", ":8787", "listen address")
	return cmd
}

// server holds everything a request handler needs: the pipeline
// driver and the model registry. Model-config hot
// reload swaps reg's table in place; the server itself never needs to
// be rebuilt.
type server struct {
	driver *pipeline.Driver
	reg    *registry.Registry
	env    *config.Env
}

func runServe() {
	setupLogging()

	env := config.LoadEnv()

	mc, err := config.LoadModelConfig(env)
	if err != nil {
		slog.Error("failed to load model config", "error", err)
		os.Exit(1)
	}

	reg, err := registry.New(mc.ToVariantSpecs(), mc.DefaultStrategyOrFirst())
	if err != nil {
		slog.Error("failed to build model registry", "error", err)
		os.Exit(1)
	}

	watcher, err := config.WatchModelConfig(env, func(reloaded *config.ModelConfigFile, loadErr error) {
		if loadErr != nil {
			slog.Warn("model config reload failed, keeping previous table", "error", loadErr)
			return
		}
		if err := reg.Swap(reloaded.ToVariantSpecs()); err != nil {
			slog.Warn("model config reload rejected, keeping previous table", "error", err)
			return
		}
		slog.Info("model config reloaded", "path", env.ModelConfigPath)
	})
	if err != nil {
		slog.Warn("model config hot reload disabled", "error", err)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	cachePath, err := sigcache.DefaultPath(env.CacheDir)
	if err != nil {
		slog.Error("failed to resolve signature cache path", "error", err)
		os.Exit(1)
	}
	cache, err := sigcache.Open(cachePath)
	if err != nil {
		slog.Error("failed to open signature cache", "path", cachePath, "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	providers.SignatureCache = cache

	srv := &server{
		driver: pipeline.New(env.MaxAttemptsDefault()),
		reg:    reg,
		env:    env,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", srv.handleDialect(dialect.OpenAIChat, ir.OpChat))
	mux.HandleFunc("/v1/messages", srv.handleDialect(dialect.Anthropic, ir.OpMessages))
	mux.HandleFunc("/v1/responses", srv.handleDialect(dialect.OpenAIResponses, ir.OpResponses))
	mux.HandleFunc("/v1/models", srv.handleModels)
	mux.HandleFunc("/", srv.handlePrefixed)

	httpServer := &http.Server{Addr: serveAddr, Handler: mux}

	go func() {
		slog.Info("llmgw listening", "addr", serveAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}

// handlePrefixed serves the "/{profile}/v1/..." route variants. The
// bare "/v1/..." patterns registered above match first; anything else
// lands here and is re-dispatched after splitting off the leading
// profile segment.
func (s *server) handlePrefixed(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	switch "/" + parts[1] {
	case "/v1/chat/completions":
		s.handleDialect(dialect.OpenAIChat, ir.OpChat)(w, r)
	case "/v1/messages":
		s.handleDialect(dialect.Anthropic, ir.OpMessages)(w, r)
	case "/v1/responses":
		s.handleDialect(dialect.OpenAIResponses, ir.OpResponses)(w, r)
	case "/v1/models":
		s.handleModels(w, r)
	default:
		http.NotFound(w, r)
	}
}

// profileFromRequest recognizes the "/{profile}/v1/..." prefix form
// alongside the bare "/v1/..." routes, plus an "X-Llmgw-Profile"
// header for callers that can't shape their path.
func profileFromRequest(r *http.Request) string {
	if p := r.Header.Get("X-Llmgw-Profile"); p != "" {
		return p
	}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) == 2 && strings.HasPrefix(parts[1], "v1/") {
		return parts[0]
	}
	return ""
}

func (s *server) handleDialect(tag dialect.Tag, op ir.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var probe struct {
			Model string `json:"model"`
		}
		if err := json.Unmarshal(body, &probe); err != nil || probe.Model == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_schema", "request body must be a JSON object with a \"model\" field")
			return
		}

		profile := profileFromRequest(r)
		variant, err := s.reg.Resolve(probe.Model, profile)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "model_unknown", err.Error())
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		in := pipeline.Input{
			Dialect:        tag,
			ProviderKey:    variant.Provider,
			UpstreamModel:  variant.UpstreamModel,
			Body:           body,
			Headers:        headers,
			Op:             op,
			Profile:        profile,
			EnsureToolCall: variant.EnsureToolCall,
			ProviderConfig: variant.ProviderConfig,
			Stream:         pipeline.Options{ChunkSize: 20, Delay: 15 * time.Millisecond},
		}

		out, err := s.driver.Serve(r.Context(), in)
		if err != nil {
			writeGatewayError(w, err)
			return
		}

		if !out.Streaming {
			w.Header().Set("Content-Type", out.ContentType)
			w.WriteHeader(out.Status)
			_, _ = w.Write(out.Body)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(out.Status)
		if err := s.driver.WriteStream(r.Context(), w, in, out.Response, out.Request); err != nil {
			slog.Warn("stream write ended with an error", "error", err)
		}
	}
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "list",
		"data":   s.reg.ListModels(),
	})
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"kind": kind, "message": message},
	})
}

func writeGatewayError(w http.ResponseWriter, err error) {
	if ge, ok := err.(*gatewayerr.Error); ok {
		if ge.Kind == gatewayerr.PipelineInternalKind {
			slog.Error("pipeline internal error", "error", ge)
		}
		writeJSONError(w, ge.Status, string(ge.Kind), ge.Message)
		return
	}
	slog.Error("pipeline internal error", "error", err)
	writeJSONError(w, http.StatusInternalServerError, string(gatewayerr.PipelineInternalKind), "internal pipeline error")
}
