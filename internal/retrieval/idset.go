package retrieval

// IDSet is a set of ordinal restaurant ids bounded by the corpus size.
// Iteration via IDs is ascending.
type IDSet struct {
	ids  []int
	mask []bool
}

func newIDSet(universe int) IDSet {
	return IDSet{mask: make([]bool, universe)}
}

func (s *IDSet) add(id int) {
	if !s.mask[id] {
		s.mask[id] = true
		s.ids = append(s.ids, id)
	}
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s.ids) }

// IsEmpty reports whether the set has no members.
func (s IDSet) IsEmpty() bool { return len(s.ids) == 0 }

// Contains reports membership. Ids outside the universe are never members.
func (s IDSet) Contains(id int) bool {
	return id >= 0 && id < len(s.mask) && s.mask[id]
}

// IDs returns the members in ascending order. The caller must not modify the slice.
func (s IDSet) IDs() []int { return s.ids }
