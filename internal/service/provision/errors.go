package provision

import "errors"

var (
	// ErrConfig marks a missing or unusable credential or assistant name.
	// It is never retried.
	ErrConfig = errors.New("configuration error")
	// ErrPlatform marks a failed call to the assistant platform.
	ErrPlatform = errors.New("platform error")
	// ErrNotFound marks an assistant that does not exist on the platform.
	ErrNotFound = errors.New("assistant not found")
)
