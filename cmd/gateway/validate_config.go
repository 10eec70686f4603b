package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/llmgw/internal/config"
	"github.com/nextlevelbuilder/llmgw/internal/registry"
)

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the model registry without starting a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			env := config.LoadEnv()
			mc, err := config.LoadModelConfig(env)
			if err != nil {
				return err
			}

			if _, err := registry.New(mc.ToVariantSpecs(), mc.DefaultStrategyOrFirst()); err != nil {
				return fmt.Errorf("validate-config: %w", err)
			}

			cmd.Printf("model config valid: %d model name(s) configured\n", len(namesOf(mc)))
			return nil
		},
	}
}

func namesOf(mc *config.ModelConfigFile) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range mc.Models {
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}
