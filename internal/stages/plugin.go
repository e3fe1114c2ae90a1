package stages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// StageInput — вход plugin stage: контекст, декодированный в T.
type StageInput[T any] struct {
	Input T
}

// StageOutput — результат plugin stage.
type StageOutput struct {
	Status  domain.StageStatus
	Outputs map[string]any
}

// Plugin — stage, реализованный плагином.
type Plugin[T any] interface {
	Execute(ctx context.Context, input StageInput[T]) (StageOutput, error)
}

// PluginFunc позволяет использовать функцию как Plugin.
type PluginFunc[T any] func(ctx context.Context, input StageInput[T]) (StageOutput, error)

// Execute реализует Plugin.
func (f PluginFunc[T]) Execute(ctx context.Context, input StageInput[T]) (StageOutput, error) {
	return f(ctx, input)
}

// DecodeFunc превращает контекст stage во вход плагина.
type DecodeFunc[T any] func(ctx domain.StageContext) (T, error)

// MapDecoder возвращает DecodeFunc на mapstructure (теги `mapstructure`,
// нестрогая типизация).
func MapDecoder[T any]() DecodeFunc[T] {
	return func(ctx domain.StageContext) (T, error) {
		var out T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return out, err
		}
		if err := dec.Decode(map[string]any(ctx)); err != nil {
			return out, err
		}
		return out, nil
	}
}

// PluginTask выполняет Plugin как задачу stage.
//
// Ошибка декодирования или выполнения даёт TERMINAL без ошибки
// задачи; статус плагина переводится через StageStatus.ExecutionStatus.
type PluginTask[T any] struct {
	name   string
	plugin Plugin[T]
	decode DecodeFunc[T]
	logger *slog.Logger
}

// NewPluginTask создаёт задачу. nil decode означает MapDecoder.
func NewPluginTask[T any](name string, plugin Plugin[T], decode DecodeFunc[T], logger *slog.Logger) *PluginTask[T] {
	if decode == nil {
		decode = MapDecoder[T]()
	}
	return &PluginTask[T]{
		name:   name,
		plugin: plugin,
		decode: decode,
		logger: telemetry.OrDefault(logger),
	}
}

// Execute реализует domain.Task.
func (t *PluginTask[T]) Execute(ctx context.Context, stage *domain.Stage) (domain.TaskResult, error) {
	logger := telemetry.WithStage(t.logger, stage).With("plugin", t.name)

	input, err := t.decode(stage.Context)
	if err != nil {
		logger.Error("cannot execute stage", "error", fmt.Errorf("%w: %v", ErrPluginDecode, err))
		return domain.NewTaskResult(domain.StatusTerminal), nil
	}

	out, err := t.plugin.Execute(ctx, StageInput[T]{Input: input})
	if err != nil {
		logger.Error("cannot execute stage", "error", err)
		return domain.NewTaskResult(domain.StatusTerminal), nil
	}

	result := domain.NewTaskResult(out.Status.ExecutionStatus())
	if out.Outputs != nil {
		result.Outputs = out.Outputs
	}
	return result, nil
}

// PluginOption настраивает PluginDefinition.
type PluginOption func(*PluginDefinition)

// WithAliases задаёт алиасы типа.
func WithAliases(aliases ...string) PluginOption {
	return func(p *PluginDefinition) {
		p.aliases = append(p.aliases, aliases...)
	}
}

// WithAroundStages задаёт around-stages (BEFORE и AFTER вместе).
func WithAroundStages(fn func(parent *domain.Stage) []*domain.Stage) PluginOption {
	return func(p *PluginDefinition) { p.around = fn }
}

// WithParallelStages задаёт stages, выполняемые без рёбер.
func WithParallelStages(fn func(parent *domain.Stage) []*domain.Stage) PluginOption {
	return func(p *PluginDefinition) { p.parallel = fn }
}

// PluginDefinition — определение stage из одной задачи плагина.
// BEFORE/AFTER-stages строятся из around/parallel stages.
type PluginDefinition struct {
	engine.BaseDefinition

	stageType string
	taskName  string
	task      domain.Task
	aliases   []string
	around    func(*domain.Stage) []*domain.Stage
	parallel  func(*domain.Stage) []*domain.Stage
}

// NewPluginDefinition создаёт определение stage.
func NewPluginDefinition(stageType, taskName string, task domain.Task, opts ...PluginOption) *PluginDefinition {
	p := &PluginDefinition{
		stageType: stageType,
		taskName:  taskName,
		task:      task,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type реализует engine.StageDefinition.
func (p *PluginDefinition) Type() string { return p.stageType }

// Aliases реализует engine.StageDefinition.
func (p *PluginDefinition) Aliases() []string { return p.aliases }

// TaskGraph реализует engine.StageDefinition.
func (p *PluginDefinition) TaskGraph(_ *domain.Stage, builder *engine.TaskGraphBuilder) {
	builder.WithTask(p.taskName, p.task)
}

// AroundStages реализует engine.Composer.
func (p *PluginDefinition) AroundStages(parent *domain.Stage) []*domain.Stage {
	if p.around == nil {
		return nil
	}
	return p.around(parent)
}

// ParallelStages реализует engine.Composer.
func (p *PluginDefinition) ParallelStages(parent *domain.Stage) []*domain.Stage {
	if p.parallel == nil {
		return nil
	}
	return p.parallel(parent)
}

// BeforeStages реализует engine.StageDefinition.
func (p *PluginDefinition) BeforeStages(parent *domain.Stage, graph *engine.StageGraphBuilder) {
	engine.DefaultBeforeStages(p, parent, graph)
}

// AfterStages реализует engine.StageDefinition.
func (p *PluginDefinition) AfterStages(parent *domain.Stage, graph *engine.StageGraphBuilder) {
	engine.DefaultAfterStages(p, parent, graph)
}

// Cancel реализует engine.CancellableStage: плагинам нечего очищать.
func (p *PluginDefinition) Cancel(_ context.Context, stage *domain.Stage) engine.CancelResult {
	return engine.EmptyCancelResult(stage)
}
