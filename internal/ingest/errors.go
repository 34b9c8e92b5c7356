package ingest

import "errors"

var (
	// ErrStoreUnavailable aborts a run: without the store nothing can be
	// deduplicated or persisted.
	ErrStoreUnavailable = errors.New("article store unavailable")

	ErrInvalidRequest = errors.New("invalid ingestion request")
)
