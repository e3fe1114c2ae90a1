package providers

import "errors"

// ErrIncompleteJobStatus — в jobStatus нет полей, нужных для очистки.
var ErrIncompleteJobStatus = errors.New("incomplete job status")
