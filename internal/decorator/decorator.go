package decorator

import (
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

// Decorator — расширение для конкретного cloud provider.
type Decorator interface {
	// Supports проверяет, обслуживает ли decorator дискриминатор.
	Supports(cloudProvider string) bool
}

// GraphAugmenter добавляет задачи в граф run job stage.
// Вызывается после базовых задач и до ожидания завершения.
type GraphAugmenter interface {
	AugmentGraph(stage *domain.Stage, builder *engine.TaskGraphBuilder)
}

// CleanupRewriter переписывает контекст очистки отменённого job.
// cleanup изменяется на месте.
type CleanupRewriter interface {
	RewriteCleanupContext(job *domain.RunJobContext, cleanup map[string]any) error
}
