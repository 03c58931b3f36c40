package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSearchCmd(newApp appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the restaurants retrieval would hand to the LLM",
		Long:  `Runs filtering and semantic ranking only. No LLM call is made.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := requestFromFlags(cmd, args[0], a.cfg.Retrieval.DefaultTopK)
			if err != nil {
				return err
			}

			res, err := a.recommender.Search(cmd.Context(), &req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			v := toSearchView(args[0], &res)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			printSearch(cmd.OutOrStdout(), &v)
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}
