package models

import "errors"

var (
	// ErrIndexNotFound is returned when no vector index exists for a document.
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrEmptyDocument is returned when a document yields no chunks at all.
	ErrEmptyDocument = errors.New("document has no text")
)
