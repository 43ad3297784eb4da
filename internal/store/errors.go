package store

import "errors"

var (
	// ErrPermissionDenied marks an authenticated but unauthorized cloud operation
	ErrPermissionDenied = errors.New("permission denied by the cloud database rules")
	// ErrNotFound is returned when a document id does not exist
	ErrNotFound = errors.New("document not found")
	// ErrClosed is returned after the backend has been closed
	ErrClosed = errors.New("backend is closed")
)
