package aggregate

import (
	"context"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// PromoteOutputsTask — задача, которая продвигает результаты kato.tasks
// в outputs stage.
type PromoteOutputsTask struct {
	aggregator *Aggregator
}

// NewPromoteOutputsTask создаёт задачу поверх aggregator.
func NewPromoteOutputsTask(aggregator *Aggregator) *PromoteOutputsTask {
	return &PromoteOutputsTask{aggregator: aggregator}
}

// Execute реализует domain.Task. Всегда завершается SUCCEEDED.
func (t *PromoteOutputsTask) Execute(ctx context.Context, stage *domain.Stage) (domain.TaskResult, error) {
	result := t.aggregator.Aggregate(FlattenKatoTasks(stage.Context))

	telemetry.FromContext(ctx).Info("promoting outputs",
		"stage_id", stage.ID,
		"output_keys", len(result.Outputs),
	)

	return domain.TaskResult{
		Status:  domain.StatusSucceeded,
		Context: result.Context,
		Outputs: result.Outputs,
	}, nil
}
