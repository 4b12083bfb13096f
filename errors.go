package docdex

import "errors"

var (
	// ErrClosed is returned when operating on a closed indexer.
	ErrClosed = errors.New("docdex: indexer is closed")

	// ErrEmptyDocument is returned when parsing yields no content to index.
	ErrEmptyDocument = errors.New("docdex: document has no extractable content")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("docdex: invalid configuration")
)
