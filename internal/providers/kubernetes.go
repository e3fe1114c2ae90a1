package providers

import (
	"fmt"

	"github.com/shaiso/stagegraph/internal/aggregate"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

// ProviderKubernetes — дискриминатор Kubernetes.
const ProviderKubernetes = "kubernetes"

// TaskPromoteOutputs — имя задачи продвижения outputs манифеста.
const TaskPromoteOutputs = "promoteOutputs"

// Kubernetes — decorator для job, запускаемых манифестом в Kubernetes.
type Kubernetes struct {
	promote domain.Task
}

// NewKubernetes создаёт decorator. promote — задача агрегации результатов;
// nil означает aggregate.PromoteOutputsTask с настройками по умолчанию.
func NewKubernetes(promote domain.Task) *Kubernetes {
	if promote == nil {
		promote = aggregate.NewPromoteOutputsTask(aggregate.New(aggregate.Config{}))
	}
	return &Kubernetes{promote: promote}
}

// Supports реализует decorator.Decorator.
func (k *Kubernetes) Supports(cloudProvider string) bool {
	return cloudProvider == ProviderKubernetes
}

// AugmentGraph добавляет promoteOutputs для job, заданных манифестом.
func (k *Kubernetes) AugmentGraph(stage *domain.Stage, builder *engine.TaskGraphBuilder) {
	if !stage.Context.IsManifestBased() {
		return
	}
	builder.WithTask(TaskPromoteOutputs, k.promote)
}

// RewriteCleanupContext адресует очистку манифесту job.
func (k *Kubernetes) RewriteCleanupContext(job *domain.RunJobContext, cleanup map[string]any) error {
	if job.JobStatus == nil || job.JobStatus.Name == "" {
		return fmt.Errorf("%w: job name is empty", ErrIncompleteJobStatus)
	}
	cleanup[domain.CleanupKeyManifestName] = "job " + job.JobStatus.Name
	cleanup[domain.CleanupKeyLocation] = job.JobStatus.Location
	return nil
}
