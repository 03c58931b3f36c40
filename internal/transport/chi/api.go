package chi

// ErrorCode is the machine-readable error code in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest            ErrorCode = "bad_request"
	ErrorCodeUnauthorized          ErrorCode = "unauthorized"
	ErrorCodeValidationFailed      ErrorCode = "validation_failed"
	ErrorCodeNotFound              ErrorCode = "not_found"
	ErrorCodeEncodingUnavailable   ErrorCode = "encoding_unavailable"
	ErrorCodeGenerationUnavailable ErrorCode = "generation_unavailable"
	ErrorCodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// WelcomeResponse is returned by GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Query     string   `json:"query"`
	Location  *string  `json:"location,omitempty"`
	MaxPrice  *int     `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	TopK      *int     `json:"top_k,omitempty"`
}

// RecommendResponse is returned by POST /recommend.
// NoMatch is true when no restaurant passed the filters; Recommendation then holds the fixed message.
type RecommendResponse struct {
	Recommendation string       `json:"recommendation"`
	NoMatch        bool         `json:"no_match"`
	Path           string       `json:"path"`
	Restaurants    []Restaurant `json:"restaurants"`
}

// SearchResponse is returned by GET /search.
type SearchResponse struct {
	Path    string         `json:"path"`
	Results []SearchResult `json:"results"`
}

// SearchResult is one retrieved restaurant with its distance.
// Distance is omitted on the fallback path, where no similarity was computed.
type SearchResult struct {
	Restaurant
	Distance *float32 `json:"distance,omitempty"`
}

// Restaurant is the public view of a corpus entry.
type Restaurant struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Type        string  `json:"rest_type,omitempty"`
	Cuisines    string  `json:"cuisines"`
	Rating      float64 `json:"rating"`
	PriceForTwo int     `json:"price_for_two"`
}

// LocationsResponse is returned by GET /locations.
type LocationsResponse struct {
	Locations []string `json:"locations"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	CorpusSize int               `json:"corpus_size"`
	Checks     map[string]string `json:"checks"`
}
