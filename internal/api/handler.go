package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// StageStore — хранилище stages.
type StageStore interface {
	CreateWithSubStages(ctx context.Context, stage *domain.Stage, subStages []*domain.Stage) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Stage, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*domain.Stage, error)
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]*domain.Stage, error)
}

// Definitions — реестр определений stages.
type Definitions interface {
	Get(typeOrAlias string) (engine.StageDefinition, error)
}

// EventPublisher публикует события stage.
type EventPublisher interface {
	PublishStageCancel(ctx context.Context, payload mq.StageEventPayload) error
	PublishStageRestart(ctx context.Context, payload mq.StageEventPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     StageStore
	defs      Definitions
	publisher EventPublisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store       StageStore
	Definitions Definitions
	Publisher   EventPublisher
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		defs:      cfg.Definitions,
		publisher: cfg.Publisher,
		logger:    telemetry.OrDefault(cfg.Logger),
	}
}
