package providers

import (
	"fmt"

	"github.com/shaiso/stagegraph/internal/domain"
)

// ProviderTitus — дискриминатор Titus.
const ProviderTitus = "titus"

// Titus — decorator для job в Titus.
type Titus struct{}

// NewTitus создаёт decorator.
func NewTitus() *Titus {
	return &Titus{}
}

// Supports реализует decorator.Decorator.
func (t *Titus) Supports(cloudProvider string) bool {
	return cloudProvider == ProviderTitus
}

// RewriteCleanupContext адресует очистку job по ID.
func (t *Titus) RewriteCleanupContext(job *domain.RunJobContext, cleanup map[string]any) error {
	if job.JobStatus == nil || job.JobStatus.ID == "" {
		return fmt.Errorf("%w: job id is empty", ErrIncompleteJobStatus)
	}
	cleanup[domain.CleanupKeyJobID] = job.JobStatus.ID
	return nil
}
