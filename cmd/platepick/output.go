package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
	"github.com/kailas-cloud/platepick/internal/retrieval"
	"github.com/kailas-cloud/platepick/internal/usecase/recommend"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgGreen, color.Bold)
	faintColor  = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
)

// restaurantView is the JSON shape of a restaurant in CLI output.
type restaurantView struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Type        string   `json:"rest_type,omitempty"`
	Cuisines    string   `json:"cuisines"`
	Rating      float64  `json:"rating"`
	PriceForTwo int      `json:"price_for_two"`
	Distance    *float32 `json:"distance,omitempty"`
}

type recommendationView struct {
	Query          string           `json:"query"`
	Recommendation string           `json:"recommendation,omitempty"`
	NoMatch        bool             `json:"no_match"`
	Path           string           `json:"path,omitempty"`
	Restaurants    []restaurantView `json:"restaurants"`
	Error          string           `json:"error,omitempty"`
}

type searchView struct {
	Query   string           `json:"query"`
	Path    string           `json:"path"`
	Results []restaurantView `json:"results"`
}

func toView(r *restaurant.Restaurant) restaurantView {
	return restaurantView{
		ID:          r.ID,
		Name:        r.Name,
		Location:    r.Location,
		Type:        r.Type,
		Cuisines:    r.Cuisines,
		Rating:      r.Rating,
		PriceForTwo: r.PriceForTwo,
	}
}

func toRecommendationView(query string, rec *recommend.Recommendation, err error) recommendationView {
	v := recommendationView{Query: query, Restaurants: []restaurantView{}}
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Recommendation = rec.Text
	v.NoMatch = rec.NoMatch
	v.Path = string(rec.Path)
	for i := range rec.Restaurants {
		v.Restaurants = append(v.Restaurants, toView(&rec.Restaurants[i]))
	}
	return v
}

func toSearchView(query string, res *retrieval.Result) searchView {
	v := searchView{Query: query, Path: string(res.Path), Results: []restaurantView{}}
	for i := range res.Restaurants {
		rv := toView(&res.Restaurants[i])
		if i < len(res.Distances) {
			d := res.Distances[i]
			rv.Distance = &d
		}
		v.Results = append(v.Results, rv)
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printRecommendation(w io.Writer, v *recommendationView) {
	headerColor.Fprintf(w, "> %s\n", v.Query)
	if v.Error != "" {
		errorColor.Fprintf(w, "error: %s\n\n", v.Error)
		return
	}
	if v.NoMatch {
		warnColor.Fprintln(w, v.Recommendation)
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w, v.Recommendation)
	if len(v.Restaurants) > 0 {
		faintColor.Fprintf(w, "\nBased on (%s):\n", v.Path)
		for i := range v.Restaurants {
			printRestaurant(w, i+1, &v.Restaurants[i])
		}
	}
	fmt.Fprintln(w)
}

func printSearch(w io.Writer, v *searchView) {
	headerColor.Fprintf(w, "> %s ", v.Query)
	faintColor.Fprintf(w, "[%s]\n", v.Path)
	if len(v.Results) == 0 {
		warnColor.Fprintln(w, "No restaurants matched.")
		return
	}
	for i := range v.Results {
		printRestaurant(w, i+1, &v.Results[i])
	}
}

func printRestaurant(w io.Writer, rank int, r *restaurantView) {
	fmt.Fprintf(w, "%2d. ", rank)
	nameColor.Fprint(w, r.Name)
	fmt.Fprintf(w, " (%s) rating %.1f", r.Location, r.Rating)
	if r.PriceForTwo > 0 {
		fmt.Fprintf(w, ", %d for two", r.PriceForTwo)
	}
	if r.Distance != nil {
		faintColor.Fprintf(w, "  d=%.4f", *r.Distance)
	}
	fmt.Fprintln(w)
	if r.Cuisines != "" {
		faintColor.Fprintf(w, "    %s\n", r.Cuisines)
	}
}
