package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/platepick/internal/domain/search/request"
)

func NewRecommendCmd(newApp appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend restaurants for a query",
		Long: `Retrieves matching restaurants and asks the LLM for a recommendation.
With --file, reads a JSON array of {"query","location","max_price","min_rating","top_k"}
objects and answers them concurrently, in input order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" && len(args) == 0 {
				return errors.New("a query argument or --file is required")
			}
			if file != "" && len(args) > 0 {
				return errors.New("use either a query argument or --file, not both")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			asJSON, _ := cmd.Flags().GetBool("json")
			if file != "" {
				return runRecommendBatch(cmd, a, file, asJSON)
			}
			return runRecommend(cmd, a, args[0], asJSON)
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringP("file", "f", "", "JSON file with a batch of queries")
	return cmd
}

func runRecommend(cmd *cobra.Command, a *app, query string, asJSON bool) error {
	req, err := requestFromFlags(cmd, query, a.cfg.Retrieval.DefaultTopK)
	if err != nil {
		return err
	}

	rec, err := a.recommender.Recommend(cmd.Context(), &req)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	v := toRecommendationView(query, &rec, nil)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	printRecommendation(cmd.OutOrStdout(), &v)
	return nil
}

// batchItem is one entry of a --file batch.
type batchItem struct {
	Query     string  `json:"query"`
	Location  string  `json:"location"`
	MaxPrice  *int    `json:"max_price"`
	MinRating float64 `json:"min_rating"`
	TopK      int     `json:"top_k"`
}

func readBatch(path string) ([]batchItem, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return decodeBatch(f)
}

func decodeBatch(r io.Reader) ([]batchItem, error) {
	var items []batchItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("batch is empty")
	}
	return items, nil
}

// recommendBatch validates every item, runs the valid ones through RecommendMany
// and returns views aligned with items. Invalid items carry their validation error.
func recommendBatch(ctx context.Context, rec recommender, items []batchItem, defaultTopK int) []recommendationView {
	views := make([]recommendationView, len(items))
	valid := make([]request.Request, 0, len(items))
	index := make([]int, 0, len(items))

	for i, it := range items {
		topK := it.TopK
		if topK == 0 {
			topK = defaultTopK
		}
		req, err := request.Parse(it.Query, it.Location, it.MaxPrice, it.MinRating, topK)
		if err != nil {
			views[i] = toRecommendationView(it.Query, nil, err)
			continue
		}
		valid = append(valid, req)
		index = append(index, i)
	}

	if len(valid) == 0 {
		return views
	}

	outcomes := rec.RecommendMany(ctx, valid)
	for j, out := range outcomes {
		i := index[j]
		views[i] = toRecommendationView(items[i].Query, &out.Recommendation, out.Err)
	}
	return views
}

func runRecommendBatch(cmd *cobra.Command, a *app, path string, asJSON bool) error {
	items, err := readBatch(path)
	if err != nil {
		return err
	}

	views := recommendBatch(cmd.Context(), a.recommender, items, a.cfg.Retrieval.DefaultTopK)

	failed := 0
	for i := range views {
		if views[i].Error != "" {
			failed++
		}
	}

	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), views); err != nil {
			return err
		}
	} else {
		for i := range views {
			printRecommendation(cmd.OutOrStdout(), &views[i])
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(views))
	}
	return nil
}
