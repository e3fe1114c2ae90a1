package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

// StageResponse — ответ со stage.
type StageResponse struct {
	ID                  uuid.UUID              `json:"id"`
	ExecutionID         uuid.UUID              `json:"execution_id"`
	ParentStageID       *uuid.UUID             `json:"parent_stage_id,omitempty"`
	RefID               string                 `json:"ref_id,omitempty"`
	Type                string                 `json:"type"`
	Name                string                 `json:"name,omitempty"`
	Status              domain.ExecutionStatus `json:"status"`
	SyntheticStageOwner domain.Phase           `json:"synthetic_stage_owner,omitempty"`
	Parallel            bool                   `json:"parallel,omitempty"`
	Context             map[string]any         `json:"context"`
	Outputs             map[string]any         `json:"outputs"`
	StartTime           *time.Time             `json:"start_time,omitempty"`
	EndTime             *time.Time             `json:"end_time,omitempty"`
}

// StageFromDomain конвертирует domain.Stage в StageResponse.
func StageFromDomain(s *domain.Stage) StageResponse {
	return StageResponse{
		ID:                  s.ID,
		ExecutionID:         s.ExecutionID,
		ParentStageID:       s.ParentStageID,
		RefID:               s.RefID,
		Type:                s.Type,
		Name:                s.Name,
		Status:              s.Status,
		SyntheticStageOwner: s.SyntheticStageOwner,
		Parallel:            s.Parallel,
		Context:             s.Context,
		Outputs:             s.Outputs,
		StartTime:           s.StartTime,
		EndTime:             s.EndTime,
	}
}

// StagesFromDomain конвертирует список stages.
func StagesFromDomain(stages []*domain.Stage) []StageResponse {
	result := make([]StageResponse, len(stages))
	for i, s := range stages {
		result[i] = StageFromDomain(s)
	}
	return result
}

// CreateStageResponse — ответ на создание stage.
type CreateStageResponse struct {
	Stage     StageResponse   `json:"stage"`
	SubStages []StageResponse `json:"sub_stages,omitempty"`
}

// TaskGraphResponse — граф задач stage.
// Before — BEFORE-stages, которые определение добавит при входе в stage.
type TaskGraphResponse struct {
	StageID         uuid.UUID        `json:"stage_id"`
	Type            engine.GraphType `json:"type"`
	Tasks           []string         `json:"tasks"`
	Before          []StageResponse  `json:"before,omitempty"`
	CanManuallySkip bool             `json:"can_manually_skip"`
}

// EventResponse — ответ на публикацию события.
type EventResponse struct {
	StageID uuid.UUID `json:"stage_id"`
	Event   string    `json:"event"`
}
