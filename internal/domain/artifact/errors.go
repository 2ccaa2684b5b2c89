package artifact

import "errors"

// Error categories reported by the pipeline stages.
// Stages wrap the underlying cause together with a category so callers can
// match either one with errors.Is.
var (
	// ErrNetwork reports a failed request or a non-successful HTTP status.
	ErrNetwork = errors.New("network error")
	// ErrArchive reports a corrupt, unreadable or unsafe archive.
	ErrArchive = errors.New("archive error")
	// ErrFilesystem reports a failed create, copy, move or delete operation.
	ErrFilesystem = errors.New("filesystem error")
	// ErrLaunch reports a missing executable or a process that failed to start.
	ErrLaunch = errors.New("launch error")
)
