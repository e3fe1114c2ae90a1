package domain

import (
	"context"
	"time"
)

// Task — единица работы, которую выполняет внешний engine.
//
// Ядро композиции никогда не вызывает Execute само: оно лишь кладёт
// Task в граф и потребляет возвращённые delta-map'ы.
type Task interface {
	Execute(ctx context.Context, stage *Stage) (TaskResult, error)
}

// TaskFunc позволяет использовать функцию как Task.
type TaskFunc func(ctx context.Context, stage *Stage) (TaskResult, error)

// Execute реализует Task.
func (f TaskFunc) Execute(ctx context.Context, stage *Stage) (TaskResult, error) {
	return f(ctx, stage)
}

// TaskUnit — задача в графе: имя плюс ссылка на реализацию.
// Позиция в графе определяется порядком добавления.
type TaskUnit struct {
	// Name — имя задачи, уникальное в пределах графа.
	Name string

	// Task — исполняемая реализация.
	Task Task
}

// TaskResult — результат выполнения задачи.
type TaskResult struct {
	// Status — статус после выполнения.
	Status ExecutionStatus

	// Context — дельта, которая мёржится в StageContext.
	Context map[string]any

	// Outputs — дельта, которая мёржится в Stage.Outputs.
	Outputs map[string]any
}

// NewTaskResult создаёт результат с пустыми delta-map'ами.
func NewTaskResult(status ExecutionStatus) TaskResult {
	return TaskResult{
		Status:  status,
		Context: make(map[string]any),
		Outputs: make(map[string]any),
	}
}

// RetryableTask — задача, которую engine повторяет до истечения Timeout
// с паузой BackoffPeriod между попытками.
type RetryableTask interface {
	Task
	BackoffPeriod() time.Duration
	Timeout() time.Duration
}
