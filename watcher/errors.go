package watcher

import "errors"

var (
	// ErrRootNotFound is returned when the watched path does not exist.
	ErrRootNotFound = errors.New("watch root not found")

	// ErrNotDirectory is returned when the watched path is not a directory.
	ErrNotDirectory = errors.New("watch root is not a directory")
)
