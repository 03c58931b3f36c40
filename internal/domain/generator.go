package domain

import "context"

// Generator turns a user query and the formatted evidence into a recommendation text.
type Generator interface {
	Generate(ctx context.Context, query, evidence string) (string, error)
}
