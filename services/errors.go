package services

import "errors"

// Sentinel errors returned by the index and retrieval engine. Callers match
// these with errors.Is and map them to HTTP status codes in the routes layer.
var (
	// ErrEmptyQuery is returned before any work when a search query is
	// empty or whitespace-only.
	ErrEmptyQuery = errors.New("empty query")

	// ErrDocumentNotFound is returned by delete and lookup operations when
	// no document with the given name was ever indexed.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoExtractableText is returned when a PDF yields no usable text.
	// Ingestion reports it as a warning rather than failing the request.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
