package searchquery

import "errors"

// Sentinel errors for common validation failures.

var (
	// ErrProviderNotFound is returned when a provider is not registered.
	// Usually means you forgot to import the provider package with an underscore.
	ErrProviderNotFound = errors.New("search provider not found")

	// ErrEmptyID is returned when an empty ID is provided to Index or Delete.
	ErrEmptyID = errors.New("empty ID")

	// ErrEmptyDocument is returned when an empty document is provided to Index.
	ErrEmptyDocument = errors.New("empty document")

	// ErrTopExceeded is returned when the requested page size exceeds MaxTop.
	ErrTopExceeded = errors.New("top exceeds the maximum page size")

	// ErrNegativeSkip is returned when a request carries a negative skip.
	ErrNegativeSkip = errors.New("skip must not be negative")

	// ErrSkipExceeded is returned when the requested offset exceeds MaxSkip.
	ErrSkipExceeded = errors.New("skip exceeds the maximum offset")
)
