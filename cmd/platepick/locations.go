package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/config"
)

func NewLocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List the distinct locations in the corpus",
		Long: `Lists locations for filter dropdowns. The corpus comes from --attributes/--vectors,
--snapshot, or the corpus section of the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := corpusConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			c, err := loadCorpus(cc, zap.NewNop())
			if err != nil {
				return err
			}

			locs := c.Locations()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), locs)
			}
			for _, l := range locs {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().String("attributes", "", "Attribute CSV path")
	cmd.Flags().String("vectors", "", "Vector file path")
	cmd.Flags().String("snapshot", "", "Badger snapshot directory")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

// corpusConfigFromFlags prefers explicit corpus flags and falls back to the config file.
func corpusConfigFromFlags(cmd *cobra.Command) (config.CorpusConfig, error) {
	attrs, _ := cmd.Flags().GetString("attributes")
	vecs, _ := cmd.Flags().GetString("vectors")
	snap, _ := cmd.Flags().GetString("snapshot")

	switch {
	case snap != "":
		return config.CorpusConfig{Source: config.SourceBadger, BadgerDir: snap}, nil
	case attrs != "" || vecs != "":
		if attrs == "" || vecs == "" {
			return config.CorpusConfig{}, fmt.Errorf("--attributes and --vectors must be used together")
		}
		return config.CorpusConfig{Source: config.SourceFiles, AttributesPath: attrs, VectorsPath: vecs}, nil
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return config.CorpusConfig{}, err
	}
	return cfg.Corpus, nil
}
