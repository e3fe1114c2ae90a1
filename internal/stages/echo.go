package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// TypeEcho — тип echo stage.
const TypeEcho = "echo"

// TaskEcho — имя задачи echo stage.
const TaskEcho = "echoTask"

// EchoInput — вход echo stage.
type EchoInput struct {
	Message string `mapstructure:"message"`
}

// EchoTask — задача echo stage. Повторяется раз в минуту в течение суток.
type EchoTask struct {
	*PluginTask[EchoInput]
}

// BackoffPeriod реализует domain.RetryableTask.
func (EchoTask) BackoffPeriod() time.Duration { return time.Minute }

// Timeout реализует domain.RetryableTask.
func (EchoTask) Timeout() time.Duration { return 24 * time.Hour }

// NewEcho создаёт echo stage: пишет message в лог и возвращает его в outputs.
func NewEcho(logger *slog.Logger) *PluginDefinition {
	logger = telemetry.OrDefault(logger)

	plugin := PluginFunc[EchoInput](func(_ context.Context, in StageInput[EchoInput]) (StageOutput, error) {
		logger.Info("executed echo task", "message", in.Input.Message)
		return StageOutput{
			Status:  domain.StageStatusCompleted,
			Outputs: map[string]any{"message": in.Input.Message},
		}, nil
	})

	task := EchoTask{NewPluginTask[EchoInput](TaskEcho, plugin, nil, logger)}
	return NewPluginDefinition(TypeEcho, TaskEcho, task)
}
