package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrStageNotFound — stage не найден в хранилище.
	ErrStageNotFound = errors.New("stage not found")

	// ErrUnknownStageType — для типа stage нет определения.
	ErrUnknownStageType = errors.New("unknown stage type")

	// ErrNoConnection — Start вызван без соединения с RabbitMQ.
	ErrNoConnection = errors.New("rabbitmq connection is not configured")
)
