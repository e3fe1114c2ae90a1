package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/repo"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// handleCancel обрабатывает stage.cancel.
func (s *Service) handleCancel(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.StageEventPayload](&delivery.Message)
	if err != nil {
		return err
	}
	return permanent(s.Cancel(ctx, payload.StageID))
}

// handleRestart обрабатывает stage.restart.
func (s *Service) handleRestart(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.StageEventPayload](&delivery.Message)
	if err != nil {
		return err
	}
	return permanent(s.Restart(ctx, payload.StageID))
}

// handleCompleted обрабатывает stage.completed.
func (s *Service) handleCompleted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.StageEventPayload](&delivery.Message)
	if err != nil {
		return err
	}
	return permanent(s.Complete(ctx, payload.StageID, domain.ExecutionStatus(payload.Status)))
}

// permanent помечает ошибки, которые не исчезнут при повторе.
func permanent(err error) error {
	if errors.Is(err, ErrStageNotFound) || errors.Is(err, ErrUnknownStageType) {
		return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
	}
	return err
}

// Cancel отменяет stage и сохраняет результат.
// Повторная отмена уже отменённого stage ничего не делает.
func (s *Service) Cancel(ctx context.Context, stageID uuid.UUID) error {
	stage, def, err := s.load(ctx, stageID)
	if err != nil {
		return err
	}
	logger := telemetry.WithStage(s.logger, stage)

	if stage.Status == domain.StatusCanceled {
		logger.Debug("stage already canceled, skipping")
		return nil
	}

	if c, ok := def.(engine.CancellableStage); ok {
		result := c.Cancel(mq.WithStageRef(ctx, stage.ID, stage.ExecutionID), stage)
		logger.Info("stage canceled", "cleanup_keys", len(result.Details))
	}

	stage.MarkCanceled()
	s.forgetPhase(stage.ID)

	if err := s.store.UpdateContext(ctx, stage); err != nil {
		return fmt.Errorf("save canceled stage: %w", err)
	}
	return nil
}

// Restart готовит stage к повторному запуску.
func (s *Service) Restart(ctx context.Context, stageID uuid.UUID) error {
	stage, def, err := s.load(ctx, stageID)
	if err != nil {
		return err
	}

	def.PrepareForRestart(stage)
	stage.Status = domain.StatusNotStarted
	stage.StartTime = nil
	stage.EndTime = nil
	s.forgetPhase(stage.ID)

	if err := s.store.UpdateContext(ctx, stage); err != nil {
		return fmt.Errorf("save restarted stage: %w", err)
	}

	telemetry.WithStage(s.logger, stage).Info("stage restarted")
	return nil
}

// Complete обрабатывает завершение задач stage.
//
// Планирует after-stages (или failure-stages, если stage упал),
// сохраняет контекст и sub-stages, публикует готовые к запуску.
// Для sub-stage дополнительно продвигает фазу родителя.
func (s *Service) Complete(ctx context.Context, stageID uuid.UUID, status domain.ExecutionStatus) error {
	stage, def, err := s.load(ctx, stageID)
	if err != nil {
		return err
	}
	logger := telemetry.WithStage(s.logger, stage)

	if status != "" {
		stage.Status = status
	}
	if stage.Status.IsTerminal() && stage.EndTime == nil {
		now := time.Now()
		stage.EndTime = &now
	}

	var graph *engine.StageGraph
	if failed(stage.Status) {
		graph, err = engine.PlanFailureStages(def, stage)
	} else {
		graph, err = engine.PlanAfterStages(def, stage)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", mq.ErrPermanent, err)
	}

	if err := s.store.UpdateContext(ctx, stage); err != nil {
		return fmt.Errorf("save stage: %w", err)
	}

	if graph.Size() > 0 {
		if err := s.store.CreateSubStages(ctx, graph.Stages()); err != nil {
			return fmt.Errorf("save %s stages: %w", graph.Phase, err)
		}

		state := NewPhaseState(graph)
		s.trackPhase(state)
		logger.Info("phase planned", "phase", graph.Phase, "stages", graph.Size())
		s.dispatchReady(ctx, state)
	}

	if stage.IsSynthetic() {
		s.advance(ctx, stage)
	}
	return nil
}

// advance учитывает завершение sub-stage в фазе родителя.
func (s *Service) advance(ctx context.Context, child *domain.Stage) {
	parentID := *child.ParentStageID
	state, ok := s.Phase(parentID)
	if !ok || !state.Has(child.ID) {
		s.logger.Debug("no active phase for sub-stage",
			"stage_id", child.ID,
			"parent_stage_id", parentID,
		)
		return
	}

	state.MarkFinished(child.ID, child.Status)

	switch {
	case state.HasFailed():
		s.forgetPhase(parentID)
		s.logger.Warn("phase failed",
			"parent_stage_id", parentID,
			"phase", state.Phase(),
			"stage_id", child.ID,
			"status", child.Status,
		)
	case state.IsComplete():
		s.forgetPhase(parentID)
		s.logger.Info("phase completed",
			"parent_stage_id", parentID,
			"phase", state.Phase(),
		)
	default:
		s.dispatchReady(ctx, state)
	}
}

// dispatchReady публикует готовые sub-stages фазы.
func (s *Service) dispatchReady(ctx context.Context, state *PhaseState) {
	for _, stage := range state.Ready() {
		state.MarkRunning(stage.ID)

		if s.publisher == nil {
			continue
		}
		err := s.publisher.PublishStageReady(ctx, mq.StageEventPayload{
			StageID:     stage.ID,
			ExecutionID: stage.ExecutionID,
		})
		if err != nil {
			// sub-stage уже сохранён — engine найдёт его в хранилище
			s.logger.Warn("failed to publish stage.ready",
				"stage_id", stage.ID,
				"error", err,
			)
		}
	}
}

// load загружает stage и его определение.
func (s *Service) load(ctx context.Context, stageID uuid.UUID) (*domain.Stage, engine.StageDefinition, error) {
	stage, err := s.store.GetByID(ctx, stageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
		}
		return nil, nil, fmt.Errorf("get stage: %w", err)
	}

	def, err := s.defs.Get(stage.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrUnknownStageType, stage.Type, err)
	}
	return stage, def, nil
}

// failed — stage упал и нужна failure-фаза.
func failed(status domain.ExecutionStatus) bool {
	return status == domain.StatusTerminal || status == domain.StatusFailedContinue
}
