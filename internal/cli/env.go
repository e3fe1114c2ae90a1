package cli

import (
	"context"

	"github.com/shaiso/stagegraph/internal/app"
	"github.com/shaiso/stagegraph/internal/lifecycle"
	"github.com/shaiso/stagegraph/internal/mq"
)

// EnvFunc собирает компоненты после парсинга флагов.
// cleanup — исполнитель очистки для команды cancel (может быть nil).
type EnvFunc func(cleanup lifecycle.Cleanup) (*app.Components, error)

// EventPublisher публикует события stage для orchestrator.
type EventPublisher interface {
	PublishStageCancel(ctx context.Context, payload mq.StageEventPayload) error
	PublishStageRestart(ctx context.Context, payload mq.StageEventPayload) error
	PublishStageCompleted(ctx context.Context, payload mq.StageEventPayload) error
}

// PublisherFunc открывает соединение и возвращает publisher
// и функцию закрытия.
type PublisherFunc func(ctx context.Context) (EventPublisher, func() error, error)
