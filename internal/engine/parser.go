package engine

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
)

// StageSpec — декларативное описание stage (JSON).
//
// Пример:
//
//	{
//	  "refId": "1",
//	  "type": "runJob",
//	  "context": {"cloudProvider": "kubernetes", "waitForCompletion": true},
//	  "stages": [
//	    {"type": "wait", "syntheticStageOwner": "STAGE_AFTER"},
//	    {"type": "notify", "syntheticStageOwner": "STAGE_AFTER", "parallel": true}
//	  ]
//	}
type StageSpec struct {
	ID                  string         `json:"id,omitempty"`
	ExecutionID         string         `json:"executionId,omitempty"`
	RefID               string         `json:"refId,omitempty"`
	Type                string         `json:"type"`
	Name                string         `json:"name,omitempty"`
	Status              string         `json:"status,omitempty"`
	Context             map[string]any `json:"context,omitempty"`
	Outputs             map[string]any `json:"outputs,omitempty"`
	SyntheticStageOwner string         `json:"syntheticStageOwner,omitempty"`
	Parallel            bool           `json:"parallel,omitempty"`

	// Stages — sub-stages, объявленные вместе с родителем.
	Stages []StageSpec `json:"stages,omitempty"`
}

// ParsedStage — stage вместе с объявленными sub-stages.
//
// SubStages содержит всех потомков в прямом порядке обхода: родитель
// всегда раньше своих sub-stages, у каждого выставлен ParentStageID.
type ParsedStage struct {
	Stage     *domain.Stage
	SubStages []*domain.Stage
}

// Children возвращает прямые sub-stages корневого stage.
func (p *ParsedStage) Children() []*domain.Stage {
	return p.filter(func(*domain.Stage) bool { return true })
}

// Around возвращает прямые sub-stages без флага parallel.
func (p *ParsedStage) Around() []*domain.Stage {
	return p.filter(func(s *domain.Stage) bool { return !s.Parallel })
}

// ParallelStages возвращает прямые sub-stages с флагом parallel.
func (p *ParsedStage) ParallelStages() []*domain.Stage {
	return p.filter(func(s *domain.Stage) bool { return s.Parallel })
}

func (p *ParsedStage) filter(keep func(*domain.Stage) bool) []*domain.Stage {
	result := make([]*domain.Stage, 0, len(p.SubStages))
	for _, s := range p.SubStages {
		if s.ParentStageID != nil && *s.ParentStageID == p.Stage.ID && keep(s) {
			result = append(result, s)
		}
	}
	return result
}

// ParseStage парсит StageSpec из JSON и валидирует его.
func ParseStage(data []byte) (*ParsedStage, error) {
	var spec StageSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStageJSON, err)
	}
	return FromSpec(&spec)
}

// FromSpec превращает StageSpec в domain.Stage.
func FromSpec(spec *StageSpec) (*ParsedStage, error) {
	if err := ValidateSpec(spec, true); err != nil {
		return nil, err
	}

	stage, err := toStage(spec, uuid.Nil)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedStage{Stage: stage}
	if err := parsed.addChildren(stage, spec.Stages); err != nil {
		return nil, err
	}
	return parsed, nil
}

// addChildren разворачивает вложенные sub-stages в SubStages.
func (p *ParsedStage) addChildren(parent *domain.Stage, specs []StageSpec) error {
	for i := range specs {
		child, err := toStage(&specs[i], parent.ExecutionID)
		if err != nil {
			return err
		}
		parentID := parent.ID
		child.ParentStageID = &parentID
		p.SubStages = append(p.SubStages, child)

		if err := p.addChildren(child, specs[i].Stages); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSpec проверяет StageSpec.
// root=true — spec верхнего уровня: фаза у него не обязательна,
// у sub-stages обязательна.
func ValidateSpec(spec *StageSpec, root bool) error {
	ref := spec.RefID
	if ref == "" {
		ref = spec.ID
	}

	if spec.Type == "" {
		return NewValidationError(ref, "type", "stage has empty type", ErrEmptyStageType)
	}

	if spec.SyntheticStageOwner != "" || !root {
		if !validPhase(domain.Phase(spec.SyntheticStageOwner)) {
			return NewValidationError(ref, "syntheticStageOwner",
				fmt.Sprintf("unknown synthetic stage owner: %q", spec.SyntheticStageOwner), ErrInvalidPhase)
		}
	}

	for i := range spec.Stages {
		if err := ValidateSpec(&spec.Stages[i], false); err != nil {
			return err
		}
	}
	return nil
}

func validPhase(p domain.Phase) bool {
	switch p {
	case domain.PhaseBefore, domain.PhaseAfter, domain.PhaseFailure:
		return true
	default:
		return false
	}
}

func toStage(spec *StageSpec, executionID uuid.UUID) (*domain.Stage, error) {
	id, err := parseOrNew(spec.ID)
	if err != nil {
		return nil, NewValidationError(spec.RefID, "id", "invalid stage id", err)
	}
	if spec.ExecutionID != "" {
		executionID, err = uuid.Parse(spec.ExecutionID)
		if err != nil {
			return nil, NewValidationError(spec.RefID, "executionId", "invalid execution id", err)
		}
	} else if executionID == uuid.Nil {
		executionID = uuid.New()
	}

	stage := domain.NewStage(executionID, spec.Type, spec.Context)
	stage.ID = id
	stage.RefID = spec.RefID
	stage.Name = spec.Name
	stage.Status = domain.ParseExecutionStatus(spec.Status)
	stage.SyntheticStageOwner = domain.Phase(spec.SyntheticStageOwner)
	stage.Parallel = spec.Parallel
	if spec.Outputs != nil {
		stage.Outputs = spec.Outputs
	}
	return stage, nil
}

func parseOrNew(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}
