// Package cmd implements the gateway's command-line entry points. The
// core package (internal/pipeline and friends) is HTTP-framework
// agnostic; this package is the thinnest possible host. It wires the
// core to stdlib net/http and exposes a couple of standalone
// maintenance subcommands, keeping "run the service" and "one-shot
// diagnostic" commands separate.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nextlevelbuilder/llmgw/internal/dialect/anthropic"
	_ "github.com/nextlevelbuilder/llmgw/internal/dialect/openaichat"
	_ "github.com/nextlevelbuilder/llmgw/internal/dialect/openairesponses"
	_ "github.com/nextlevelbuilder/llmgw/internal/ensuretoolcall"
	_ "github.com/nextlevelbuilder/llmgw/internal/providers"
	_ "github.com/nextlevelbuilder/llmgw/internal/transform"
)

// Version is set at build time via -ldflags
// "-X github.com/nextlevelbuilder/llmgw/cmd/gateway.Version=v1.0.0"
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "llmgw",
	Short: "llmgw — multi-provider LLM gateway core",
	Long:  "llmgw normalizes OpenAI Chat, OpenAI Responses, and Anthropic Messages requests into a single intermediate representation, routes them to OpenAI-compatible, Anthropic, Vertex, and OpenRouter providers, and renders the response back into the client's dialect.",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateConfigCmd())
	rootCmd.AddCommand(sigcacheCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("llmgw %s\n", Version)
		},
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	format := os.Getenv("LLMGW_LOG_FORMAT")
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
