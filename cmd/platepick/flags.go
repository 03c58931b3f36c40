package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/platepick/internal/domain/search/request"
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("location", "l", "", `Location substring ("any" or empty for all)`)
	cmd.Flags().Int("max-price", 0, "Maximum price for two (0 = no limit)")
	cmd.Flags().Float64("min-rating", 0, "Minimum rating (0-5)")
	cmd.Flags().IntP("top-k", "k", 0, "Number of restaurants (default from config)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
}

// requestFromFlags validates query and filter flags into a request.
func requestFromFlags(cmd *cobra.Command, query string, defaultTopK int) (request.Request, error) {
	location, _ := cmd.Flags().GetString("location")
	minRating, _ := cmd.Flags().GetFloat64("min-rating")
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK == 0 {
		topK = defaultTopK
	}

	var maxPrice *int
	if cmd.Flags().Changed("max-price") {
		v, _ := cmd.Flags().GetInt("max-price")
		if v != 0 {
			maxPrice = &v
		}
	}
	return request.Parse(query, location, maxPrice, minRating, topK)
}
