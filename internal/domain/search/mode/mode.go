package mode

// Mode records which retrieval path produced a result.
type Mode string

// Retrieval path constants.
const (
	// Unfiltered ranks the whole corpus directly.
	Unfiltered Mode = "unfiltered"
	// Filtered intersects a semantic candidate pool with the filter set.
	Filtered Mode = "filtered"
	// Fallback orders the filter set by rating when the pool missed it.
	Fallback Mode = "fallback"
	Empty    Mode = "empty"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Unfiltered || m == Filtered || m == Fallback || m == Empty
}

// IsSemantic reports whether results are ordered by semantic distance.
func (m Mode) IsSemantic() bool {
	return m == Unfiltered || m == Filtered
}
