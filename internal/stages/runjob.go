package stages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/stagegraph/internal/decorator"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/lifecycle"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// TypeRunJob — тип run job stage.
const TypeRunJob = "runJob"

// Имена задач run job stage.
const (
	TaskRunJob                = "runJob"
	TaskMonitorDeploy         = "monitorDeploy"
	TaskWaitOnJobCompletion   = "waitOnJobCompletion"
	TaskBindProducedArtifacts = "bindProducedArtifacts"
	TaskConsumeArtifact       = "consumeArtifact"
)

// RunJobTasks — реализации задач run job stage.
// Задачи выполняет внешний engine; здесь они только кладутся в граф.
type RunJobTasks struct {
	RunJob                domain.Task
	MonitorDeploy         domain.Task
	WaitOnJobCompletion   domain.Task
	BindProducedArtifacts domain.Task
	ConsumeArtifact       domain.Task
}

// ExternalRunJobTasks возвращает набор задач-заглушек ExternalTask.
func ExternalRunJobTasks() RunJobTasks {
	return RunJobTasks{
		RunJob:                ExternalTask(TaskRunJob),
		MonitorDeploy:         ExternalTask(TaskMonitorDeploy),
		WaitOnJobCompletion:   ExternalTask(TaskWaitOnJobCompletion),
		BindProducedArtifacts: ExternalTask(TaskBindProducedArtifacts),
		ConsumeArtifact:       ExternalTask(TaskConsumeArtifact),
	}
}

// ExternalTask — задача, которую исполняет engine. Локальный вызов
// возвращает ErrExternalTask.
func ExternalTask(name string) domain.Task {
	return domain.TaskFunc(func(context.Context, *domain.Stage) (domain.TaskResult, error) {
		return domain.NewTaskResult(domain.StatusTerminal), fmt.Errorf("%w: %s", ErrExternalTask, name)
	})
}

// RunJobConfig — зависимости RunJob.
type RunJobConfig struct {
	Tasks      RunJobTasks
	Decorators *decorator.Registry
	Lifecycle  *lifecycle.Controller
	Aliases    []string
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

// RunJob — stage, который запускает job в cloud provider и ждёт его.
type RunJob struct {
	engine.BaseDefinition

	tasks      RunJobTasks
	decorators *decorator.Registry
	lifecycle  *lifecycle.Controller
	aliases    []string
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

// NewRunJob создаёт определение run job stage.
func NewRunJob(cfg RunJobConfig) *RunJob {
	logger := telemetry.OrDefault(cfg.Logger)
	lc := cfg.Lifecycle
	if lc == nil {
		lc = lifecycle.New(lifecycle.Config{
			Registry: cfg.Decorators,
			Logger:   logger,
			Metrics:  cfg.Metrics,
		})
	}
	return &RunJob{
		tasks:      cfg.Tasks,
		decorators: cfg.Decorators,
		lifecycle:  lc,
		aliases:    append([]string(nil), cfg.Aliases...),
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Type реализует engine.StageDefinition.
func (r *RunJob) Type() string { return TypeRunJob }

// Aliases реализует engine.StageDefinition.
func (r *RunJob) Aliases() []string { return r.aliases }

// TaskGraph строит граф задач:
// runJob → monitorDeploy → [задачи провайдера] → waitOnJobCompletion
// → bindProducedArtifacts → consumeArtifact. Три последние — по контексту.
func (r *RunJob) TaskGraph(stage *domain.Stage, builder *engine.TaskGraphBuilder) {
	builder.
		WithTask(TaskRunJob, r.tasks.RunJob).
		WithTask(TaskMonitorDeploy, r.tasks.MonitorDeploy)

	if augmenter, ok := r.decorators.Augmenter(stage); ok {
		augmenter.AugmentGraph(stage, builder)
	}

	ctx := stage.Context
	if ctx.WaitForCompletion() {
		builder.WithTask(TaskWaitOnJobCompletion, r.tasks.WaitOnJobCompletion)
	}
	if ctx.HasExpectedArtifacts() {
		builder.WithTask(TaskBindProducedArtifacts, r.tasks.BindProducedArtifacts)
	}
	if ctx.ConsumesArtifactSource() {
		builder.WithTask(TaskConsumeArtifact, r.tasks.ConsumeArtifact)
	}
}

// BuildTaskGraph строит граф и записывает его размер в метрики.
func (r *RunJob) BuildTaskGraph(stage *domain.Stage) (*engine.TaskGraph, error) {
	graph, err := engine.BuildTaskGraph(r, stage)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveTaskGraph(graph.Len())
	telemetry.WithStage(r.logger, stage).Debug("task graph built", "tasks", graph.Names())
	return graph, nil
}

// AfterStages не добавляет sub-stages: обрабатывает outputs и ссылку
// на логи после задач.
func (r *RunJob) AfterStages(parent *domain.Stage, _ *engine.StageGraphBuilder) {
	r.lifecycle.ApplyAfterPhase(parent)
}

// PrepareForRestart реализует engine.StageDefinition.
func (r *RunJob) PrepareForRestart(stage *domain.Stage) {
	r.lifecycle.PrepareForRestart(stage)
}

// Cancel реализует engine.CancellableStage.
func (r *RunJob) Cancel(ctx context.Context, stage *domain.Stage) engine.CancelResult {
	return r.lifecycle.Cancel(ctx, stage)
}
