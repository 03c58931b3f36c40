package domain

import "errors"

var (
	// ErrCorpusLoad signals an inconsistent corpus at startup (row count or dimension mismatch).
	ErrCorpusLoad = errors.New("corpus load failed")
	// ErrNotFound signals an ordinal id outside the corpus.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a query that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEncodingUnavailable signals an encoder failure.
	ErrEncodingUnavailable = errors.New("encoding unavailable")
	// ErrGenerationUnavailable signals a generation provider failure.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrVectorDimMismatch signals a query vector whose dimension differs from the corpus.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
