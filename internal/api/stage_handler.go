package api

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

const maxStageBodySize = 1 << 20

// CreateStage сохраняет stage вместе с sub-stages.
// POST /api/v1/stages
func (h *Handler) CreateStage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStageBodySize))
	if err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	parsed, err := engine.ParseStage(body)
	if HandleError(w, r, err, "") {
		return
	}

	if _, err := h.defs.Get(parsed.Stage.Type); HandleError(w, r, err, "") {
		return
	}

	if err := h.store.CreateWithSubStages(r.Context(), parsed.Stage, parsed.SubStages); HandleError(w, r, err, "") {
		return
	}

	telemetry.FromContext(r.Context()).Info("stage created",
		"stage_id", parsed.Stage.ID,
		"execution_id", parsed.Stage.ExecutionID,
		"stage_type", parsed.Stage.Type,
		"sub_stages", len(parsed.SubStages),
	)

	Created(w, CreateStageResponse{
		Stage:     StageFromDomain(parsed.Stage),
		SubStages: StagesFromDomain(parsed.SubStages),
	})
}

// GetStage возвращает stage по ID.
// GET /api/v1/stages/{id}
func (h *Handler) GetStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid stage id")
	if !ok {
		return
	}

	stage, err := h.store.GetByID(r.Context(), id)
	if HandleError(w, r, err, "stage not found") {
		return
	}

	Success(w, StageFromDomain(stage))
}

// ListChildren возвращает sub-stages stage.
// GET /api/v1/stages/{id}/children
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid stage id")
	if !ok {
		return
	}

	children, err := h.store.ListChildren(r.Context(), id)
	if HandleError(w, r, err, "") {
		return
	}

	List(w, StagesFromDomain(children), len(children))
}

// ListExecutionStages возвращает все stages выполнения.
// GET /api/v1/executions/{id}/stages
func (h *Handler) ListExecutionStages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid execution id")
	if !ok {
		return
	}

	stages, err := h.store.ListByExecution(r.Context(), id)
	if HandleError(w, r, err, "") {
		return
	}

	List(w, StagesFromDomain(stages), len(stages))
}

// GetTaskGraph строит граф задач и BEFORE-stages для текущего контекста stage.
// GET /api/v1/stages/{id}/tasks
func (h *Handler) GetTaskGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid stage id")
	if !ok {
		return
	}

	stage, err := h.store.GetByID(r.Context(), id)
	if HandleError(w, r, err, "stage not found") {
		return
	}

	def, err := h.defs.Get(stage.Type)
	if HandleError(w, r, err, "") {
		return
	}

	comp, err := engine.Compose(def, stage)
	if HandleError(w, r, err, "") {
		return
	}

	before := make([]*domain.Stage, len(comp.Before.Order))
	for i, n := range comp.Before.Order {
		before[i] = n.Stage
	}

	Success(w, TaskGraphResponse{
		StageID:         stage.ID,
		Type:            comp.Tasks.Type,
		Tasks:           comp.Tasks.Names(),
		Before:          StagesFromDomain(before),
		CanManuallySkip: def.CanManuallySkip(),
	})
}

// CancelStage публикует запрос на отмену stage.
// POST /api/v1/stages/{id}/cancel
func (h *Handler) CancelStage(w http.ResponseWriter, r *http.Request) {
	h.publishEvent(w, r, mq.MessageTypeStageCancel, func(ctx context.Context, p mq.StageEventPayload) error {
		return h.publisher.PublishStageCancel(ctx, p)
	})
}

// RestartStage публикует запрос на рестарт stage.
// POST /api/v1/stages/{id}/restart
func (h *Handler) RestartStage(w http.ResponseWriter, r *http.Request) {
	h.publishEvent(w, r, mq.MessageTypeStageRestart, func(ctx context.Context, p mq.StageEventPayload) error {
		return h.publisher.PublishStageRestart(ctx, p)
	})
}

func (h *Handler) publishEvent(w http.ResponseWriter, r *http.Request, event mq.MessageType, publish func(context.Context, mq.StageEventPayload) error) {
	id, ok := pathID(w, r, "invalid stage id")
	if !ok {
		return
	}

	stage, err := h.store.GetByID(r.Context(), id)
	if HandleError(w, r, err, "stage not found") {
		return
	}

	if stage.Status == domain.StatusCanceled && event == mq.MessageTypeStageCancel {
		InvalidState(w, "stage is already canceled")
		return
	}

	if h.publisher == nil {
		HandleError(w, r, mq.ErrNoPublisher, "")
		return
	}

	err = publish(r.Context(), mq.StageEventPayload{StageID: stage.ID, ExecutionID: stage.ExecutionID})
	if HandleError(w, r, err, "") {
		return
	}

	Accepted(w, EventResponse{StageID: stage.ID, Event: string(event)})
}

func pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, msg)
		return uuid.Nil, false
	}
	return id, true
}
