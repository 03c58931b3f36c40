package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/config"
	"github.com/kailas-cloud/platepick/internal/corpus/badgersrc"
)

func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Convert an attribute CSV and vector file into a badger snapshot",
		Long: `Validates the attribute table against the vector file and writes both into a
badger directory usable as corpus.source: badger. Existing snapshot contents are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			attrs, _ := cmd.Flags().GetString("attributes")
			vecs, _ := cmd.Flags().GetString("vectors")
			out, _ := cmd.Flags().GetString("out")
			if attrs == "" || vecs == "" || out == "" {
				return errors.New("--attributes, --vectors and --out are required")
			}
			return writeSnapshot(cmd, attrs, vecs, out)
		},
	}
	cmd.Flags().String("attributes", "", "Attribute CSV path")
	cmd.Flags().String("vectors", "", "Vector file path")
	cmd.Flags().StringP("out", "o", "", "Snapshot output directory")
	return cmd
}

func writeSnapshot(cmd *cobra.Command, attrs, vecs, out string) error {
	c, err := loadCorpus(config.CorpusConfig{
		Source:         config.SourceFiles,
		AttributesPath: attrs,
		VectorsPath:    vecs,
	}, zap.NewNop())
	if err != nil {
		return err
	}

	st, err := badgersrc.Open(badgersrc.Options{Dir: out})
	if err != nil {
		return err
	}
	if err := st.Write(c.All(), c.Matrix()); err != nil {
		_ = st.Close()
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	nameColor.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s", out)
	faintColor.Fprintf(cmd.OutOrStdout(), " (%d restaurants, %d dimensions)\n", c.Len(), c.Dimension())
	return nil
}
