package engine

import (
	"context"
	"fmt"

	"github.com/shaiso/stagegraph/internal/domain"
)

// StageDefinition описывает, из чего состоит stage данного типа.
//
// TaskGraph и BeforeStages engine вызывает при входе в stage,
// AfterStages — после его задач, OnFailureStages — при падении.
// Методы не выполняют задачи.
type StageDefinition interface {
	// Type возвращает тип stage ("runJob", "echo", ...).
	Type() string

	// Aliases возвращает альтернативные имена типа.
	Aliases() []string

	// TaskGraph добавляет задачи stage в builder.
	TaskGraph(stage *domain.Stage, builder *TaskGraphBuilder)

	// BeforeStages добавляет sub-stages, выполняемые до задач stage.
	BeforeStages(parent *domain.Stage, graph *StageGraphBuilder)

	// AfterStages добавляет sub-stages, выполняемые после задач stage.
	AfterStages(parent *domain.Stage, graph *StageGraphBuilder)

	// OnFailureStages добавляет sub-stages, выполняемые при падении.
	OnFailureStages(parent *domain.Stage, graph *StageGraphBuilder)

	// PrepareForRestart очищает контекст перед повторным запуском.
	PrepareForRestart(stage *domain.Stage)

	// CanManuallySkip — можно ли пропустить stage вручную через API.
	CanManuallySkip() bool
}

// CancellableStage — stage, которому нужна компенсирующая очистка при отмене.
type CancellableStage interface {
	Cancel(ctx context.Context, stage *domain.Stage) CancelResult
}

// CancelResult — результат отмены stage.
type CancelResult struct {
	// Stage — отменённый stage.
	Stage *domain.Stage

	// Details — контекст, переданный cleanup-задаче (может быть пустым).
	Details map[string]any
}

// EmptyCancelResult возвращает результат отмены без очистки.
func EmptyCancelResult(stage *domain.Stage) CancelResult {
	return CancelResult{Stage: stage, Details: make(map[string]any)}
}

// BaseDefinition даёт поведение по умолчанию для StageDefinition.
// Встраивается в конкретные определения.
type BaseDefinition struct{}

// Aliases — по умолчанию алиасов нет.
func (BaseDefinition) Aliases() []string { return nil }

// TaskGraph — по умолчанию задач нет.
func (BaseDefinition) TaskGraph(*domain.Stage, *TaskGraphBuilder) {}

// BeforeStages — по умолчанию sub-stages нет.
func (BaseDefinition) BeforeStages(*domain.Stage, *StageGraphBuilder) {}

// AfterStages — по умолчанию sub-stages нет.
func (BaseDefinition) AfterStages(*domain.Stage, *StageGraphBuilder) {}

// OnFailureStages — восстановление связывает конкретный stage.
func (BaseDefinition) OnFailureStages(*domain.Stage, *StageGraphBuilder) {}

// PrepareForRestart — по умолчанию ничего не очищает.
func (BaseDefinition) PrepareForRestart(*domain.Stage) {}

// CanManuallySkip — по умолчанию false.
func (BaseDefinition) CanManuallySkip() bool { return false }

// Composer — старый способ описать sub-stages: общий список
// around-stages (с фазой) и список parallel-stages.
type Composer interface {
	AroundStages(parent *domain.Stage) []*domain.Stage
	ParallelStages(parent *domain.Stage) []*domain.Stage
}

// DefaultBeforeStages связывает BEFORE-stages из Composer.
func DefaultBeforeStages(c Composer, parent *domain.Stage, graph *StageGraphBuilder) {
	graph.ConnectPhase(c.AroundStages(parent), c.ParallelStages(parent), domain.PhaseBefore)
}

// DefaultAfterStages связывает AFTER-stages из Composer.
func DefaultAfterStages(c Composer, parent *domain.Stage, graph *StageGraphBuilder) {
	graph.ConnectPhase(c.AroundStages(parent), c.ParallelStages(parent), domain.PhaseAfter)
}

// BuildTaskGraph строит FULL-граф задач stage по определению.
func BuildTaskGraph(def StageDefinition, stage *domain.Stage) (*TaskGraph, error) {
	builder := NewTaskGraphBuilder(GraphFull)
	def.TaskGraph(stage, builder)
	graph, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build task graph for %s: %w", def.Type(), err)
	}
	return graph, nil
}

// GraphSource — определение со своим способом построить граф задач
// (например, с записью метрик). Compose предпочитает его BuildTaskGraph.
type GraphSource interface {
	BuildTaskGraph(stage *domain.Stage) (*TaskGraph, error)
}

// Composition — то, что engine получает при входе в stage.
type Composition struct {
	Tasks  *TaskGraph
	Before *StageGraph
}

// Compose строит граф задач и граф BEFORE-stages.
//
// AFTER- и FAILURE-stages планируются позже (PlanAfterStages,
// PlanFailureStages): их состав может зависеть от результатов задач.
func Compose(def StageDefinition, stage *domain.Stage) (*Composition, error) {
	var tasks *TaskGraph
	var err error
	if src, ok := def.(GraphSource); ok {
		tasks, err = src.BuildTaskGraph(stage)
	} else {
		tasks, err = BuildTaskGraph(def, stage)
	}
	if err != nil {
		return nil, err
	}

	before := NewBeforeStagesBuilder(stage)
	def.BeforeStages(stage, before)
	beforeGraph, err := before.Build()
	if err != nil {
		return nil, fmt.Errorf("build before stages for %s: %w", def.Type(), err)
	}

	return &Composition{Tasks: tasks, Before: beforeGraph}, nil
}

// PlanAfterStages вызывается, когда задачи stage завершились.
func PlanAfterStages(def StageDefinition, stage *domain.Stage) (*StageGraph, error) {
	after := NewAfterStagesBuilder(stage)
	def.AfterStages(stage, after)
	graph, err := after.Build()
	if err != nil {
		return nil, fmt.Errorf("build after stages for %s: %w", def.Type(), err)
	}
	return graph, nil
}

// PlanFailureStages вызывается при падении задач или sub-stages.
func PlanFailureStages(def StageDefinition, stage *domain.Stage) (*StageGraph, error) {
	failure := NewFailureStagesBuilder(stage)
	def.OnFailureStages(stage, failure)
	graph, err := failure.Build()
	if err != nil {
		return nil, fmt.Errorf("build failure stages for %s: %w", def.Type(), err)
	}
	return graph, nil
}
