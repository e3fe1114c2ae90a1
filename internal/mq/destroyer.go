package mq

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// JobPublisher — то, что нужно JobDestroyer от Publisher.
type JobPublisher interface {
	PublishJobDestroy(ctx context.Context, payload JobDestroyPayload) error
}

// JobDestroyer передаёт контекст очистки внешнему исполнителю
// через очередь jobs.destroy. Реализует lifecycle.Cleanup.
type JobDestroyer struct {
	publisher JobPublisher
}

// NewJobDestroyer создаёт JobDestroyer.
func NewJobDestroyer(publisher JobPublisher) *JobDestroyer {
	return &JobDestroyer{publisher: publisher}
}

// Destroy публикует запрос на уничтожение job.
// Идентификаторы stage берутся из ctx (WithStageRef), если они там есть.
func (d *JobDestroyer) Destroy(ctx context.Context, cleanup map[string]any) error {
	if d.publisher == nil {
		return ErrNoPublisher
	}

	payload := JobDestroyPayload{Cleanup: maps.Clone(cleanup)}
	if ref, ok := ctx.Value(stageRefKey{}).(stageRef); ok {
		payload.StageID = ref.stageID
		payload.ExecutionID = ref.executionID
	}

	if err := d.publisher.PublishJobDestroy(ctx, payload); err != nil {
		return fmt.Errorf("request job destroy: %w", err)
	}
	return nil
}

type stageRefKey struct{}

type stageRef struct {
	stageID     uuid.UUID
	executionID uuid.UUID
}

// WithStageRef добавляет идентификаторы stage в контекст запроса очистки.
func WithStageRef(ctx context.Context, stageID, executionID uuid.UUID) context.Context {
	return context.WithValue(ctx, stageRefKey{}, stageRef{stageID: stageID, executionID: executionID})
}
