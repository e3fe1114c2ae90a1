package lifecycle

import "errors"

var (
	// ErrNoJobStatus — в контексте нет jobStatus.
	ErrNoJobStatus = errors.New("job status is missing")

	// ErrNoCleanup — Controller создан без Cleanup.
	ErrNoCleanup = errors.New("cleanup is not configured")

	// ErrCleanupPanic — провайдер или Cleanup запаниковал.
	ErrCleanupPanic = errors.New("cleanup panicked")
)
