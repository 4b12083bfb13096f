package parser

import "errors"

var (
	// ErrFileNotFound is returned when the input file does not exist.
	ErrFileNotFound = errors.New("parser: file not found")

	// ErrUnsupportedType is returned for file extensions with no extractor.
	ErrUnsupportedType = errors.New("parser: unsupported file type")

	// ErrInvalidConfig is returned for invalid parser configuration.
	ErrInvalidConfig = errors.New("parser: invalid configuration")
)
