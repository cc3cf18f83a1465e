package database

import "errors"

var (
	// ErrNotFound is returned by FindOne and FindOneAndUpdate when the filter
	// matches nothing.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidUpdate reports an update that is empty, mixes operators with
	// plain fields, or touches _id.
	ErrInvalidUpdate = errors.New("invalid update document")
	// ErrUnsupportedQuery is returned by MemoryRepository for filters or
	// update operators it does not evaluate.
	ErrUnsupportedQuery = errors.New("unsupported query")
)
