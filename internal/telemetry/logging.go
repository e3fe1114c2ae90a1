package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shaiso/stagegraph/internal/domain"
)

// Переменные окружения логгера.
const (
	EnvLogLevel  = "LOG_LEVEL"  // DEBUG | INFO | WARN | ERROR, по умолчанию INFO
	EnvLogFormat = "LOG_FORMAT" // json (по умолчанию) | text
)

// LogLevel читает уровень из LOG_LEVEL. Неизвестное значение — INFO.
func LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(EnvLogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetupLogger создаёт логгер в stdout по LOG_LEVEL / LOG_FORMAT
// и делает его глобальным.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stdout, LogLevel(), os.Getenv(EnvLogFormat))
	slog.SetDefault(logger)
	return logger
}

// NewLogger создаёт логгер в w. format "text" — текстовый вывод,
// остальное — JSON. На DEBUG в записи добавляется источник.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// OrDefault возвращает logger или глобальный логгер, если logger == nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

type loggerKey struct{}

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext достаёт логгер из контекста; без него — глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithExecutionID добавляет execution_id.
func WithExecutionID(logger *slog.Logger, executionID string) *slog.Logger {
	return logger.With("execution_id", executionID)
}

// WithStageID добавляет stage_id.
func WithStageID(logger *slog.Logger, stageID string) *slog.Logger {
	return logger.With("stage_id", stageID)
}

// WithStage добавляет execution_id, stage_id и stage_type.
func WithStage(logger *slog.Logger, stage *domain.Stage) *slog.Logger {
	return WithStageID(WithExecutionID(logger, stage.ExecutionID.String()), stage.ID.String()).
		With("stage_type", stage.Type)
}
