package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "gfgp",
		Short: "GFGP assessment portal server",
		Long: `Serves the GFGP assessment API: questionnaire templates, grantee
responses with autosave, grantor review and compliance scoring.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GFGP_CONFIG"), "YAML config file")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newMigrateCommand(&configPath))
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newTokenCommand(&configPath))
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
