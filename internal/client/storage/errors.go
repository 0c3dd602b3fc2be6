package storage

import "errors"

// Common client storage errors
var (
	// ErrStorageClosed indicates that storage was closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrVersionNotFound indicates that no version was persisted yet
	ErrVersionNotFound = errors.New("version not found")
)
