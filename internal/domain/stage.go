package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase — когда sub-stage выполняется относительно задач родителя.
type Phase string

const (
	// PhaseBefore — до задач родительского stage.
	PhaseBefore Phase = "STAGE_BEFORE"

	// PhaseAfter — после задач родительского stage.
	PhaseAfter Phase = "STAGE_AFTER"

	// PhaseFailure — при падении задач, before или after stages.
	PhaseFailure Phase = "STAGE_FAILURE"
)

// Stage — экземпляр stage внутри выполнения pipeline.
//
// Stage создаётся engine'ом при входе в stage. Sub-stage — это тот же
// Stage с заполненными ParentStageID и SyntheticStageOwner; он живёт,
// пока жива запись о выполнении родителя.
type Stage struct {
	// ID — уникальный идентификатор stage.
	ID uuid.UUID `json:"id"`

	// ExecutionID — идентификатор выполнения pipeline.
	ExecutionID uuid.UUID `json:"execution_id"`

	// RefID — ссылка на stage в определении pipeline ("1", "2", ...).
	RefID string `json:"ref_id,omitempty"`

	// Type — тип stage: "runJob", "echo", ...
	Type string `json:"type"`

	// Name — человекочитаемое имя.
	Name string `json:"name,omitempty"`

	// Status — текущий статус.
	Status ExecutionStatus `json:"status"`

	// Context — конфигурация и накопленный контекст.
	Context StageContext `json:"context"`

	// Outputs — значения, видимые следующим stages.
	Outputs map[string]any `json:"outputs,omitempty"`

	// ParentStageID — родитель для synthetic sub-stage.
	ParentStageID *uuid.UUID `json:"parent_stage_id,omitempty"`

	// SyntheticStageOwner — фаза sub-stage; пусто для обычных stages.
	SyntheticStageOwner Phase `json:"synthetic_stage_owner,omitempty"`

	// Parallel — sub-stage может выполняться параллельно с соседями по фазе.
	Parallel bool `json:"parallel,omitempty"`

	// StartTime — время начала выполнения.
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime — время завершения.
	EndTime *time.Time `json:"end_time,omitempty"`
}

// NewStage создаёт stage с новым ID и пустым контекстом.
func NewStage(executionID uuid.UUID, stageType string, ctx map[string]any) *Stage {
	return &Stage{
		ID:          uuid.New(),
		ExecutionID: executionID,
		Type:        stageType,
		Status:      StatusNotStarted,
		Context:     NewStageContext(ctx),
		Outputs:     make(map[string]any),
	}
}

// NewSubStage создаёт synthetic stage, принадлежащий parent.
func NewSubStage(parent *Stage, stageType string, phase Phase, ctx map[string]any) *Stage {
	s := NewStage(parent.ExecutionID, stageType, ctx)
	parentID := parent.ID
	s.ParentStageID = &parentID
	s.SyntheticStageOwner = phase
	return s
}

// IsSynthetic — является ли stage sub-stage'ем.
func (s *Stage) IsSynthetic() bool {
	return s.ParentStageID != nil
}

// SetOutputs заменяет outputs целиком. nil превращается в пустой map.
func (s *Stage) SetOutputs(outputs map[string]any) {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	s.Outputs = outputs
}

// Duration возвращает продолжительность выполнения.
func (s *Stage) Duration() time.Duration {
	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(*s.StartTime)
}

// MarkRunning переводит stage в статус RUNNING.
func (s *Stage) MarkRunning() {
	now := time.Now()
	s.Status = StatusRunning
	s.StartTime = &now
}

// MarkCanceled переводит stage в статус CANCELED.
func (s *Stage) MarkCanceled() {
	now := time.Now()
	s.Status = StatusCanceled
	s.EndTime = &now
}
