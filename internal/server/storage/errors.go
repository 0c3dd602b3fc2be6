package storage

import "errors"

// Common storage errors
var (
	// ErrRoomNotFound indicates that room has no recorded operations
	ErrRoomNotFound = errors.New("room not found")

	// ErrDuplicateOperation indicates that operation ID was already appended
	ErrDuplicateOperation = errors.New("operation already recorded")

	// ErrStorageClosed indicates that storage was closed
	ErrStorageClosed = errors.New("storage is closed")
)
