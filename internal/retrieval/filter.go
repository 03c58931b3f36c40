package retrieval

import (
	"github.com/kailas-cloud/platepick/internal/corpus"
	"github.com/kailas-cloud/platepick/internal/domain/search/filter"
)

// Filter returns the ids of every restaurant satisfying crit. It never fails;
// no match yields an empty set.
func Filter(c *corpus.Corpus, crit filter.Criteria) IDSet {
	set := newIDSet(c.Len())
	for id := range c.Len() {
		if crit.Matches(c.At(id)) {
			set.add(id)
		}
	}
	return set
}
