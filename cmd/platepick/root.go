package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/platepick/internal/config"
	"github.com/kailas-cloud/platepick/internal/version"
)

// NewRootCmd builds the platepick command tree. newApp is called lazily by
// commands that need the full recommendation stack.
func NewRootCmd(newApp appFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "platepick",
		Short:         "Restaurant recommendations from hybrid retrieval and an LLM",
		Long:          `Filters a restaurant corpus by location, budget and rating, ranks it semantically and asks an LLM to recommend from the evidence.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: config/<ENV>.yaml)")

	rootCmd.AddCommand(
		NewServeCmd(newApp),
		NewRecommendCmd(newApp),
		NewSearchCmd(newApp),
		NewLocationsCmd(),
		NewSnapshotCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads --config when set, otherwise the file for ENV.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	env := config.GetEnv()
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, env, fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}
