package orchestrator

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

// PhaseState — состояние sub-stages одной фазы родителя.
type PhaseState struct {
	// Parent — stage, которому принадлежит фаза.
	Parent *domain.Stage

	// Graph — запланированные sub-stages.
	Graph *engine.StageGraph

	mu        sync.RWMutex
	completed map[uuid.UUID]bool
	running   map[uuid.UUID]bool
	failed    map[uuid.UUID]domain.ExecutionStatus
}

// NewPhaseState создаёт состояние для графа фазы.
func NewPhaseState(graph *engine.StageGraph) *PhaseState {
	return &PhaseState{
		Parent:    graph.Parent,
		Graph:     graph,
		completed: make(map[uuid.UUID]bool),
		running:   make(map[uuid.UUID]bool),
		failed:    make(map[uuid.UUID]domain.ExecutionStatus),
	}
}

// Phase возвращает фазу графа.
func (s *PhaseState) Phase() domain.Phase {
	return s.Graph.Phase
}

// Has проверяет, входит ли stage в фазу.
func (s *PhaseState) Has(stageID uuid.UUID) bool {
	return s.Graph.GetNode(stageID) != nil
}

// MarkRunning отмечает sub-stage как отправленный на выполнение.
func (s *PhaseState) MarkRunning(stageID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[stageID] = true
}

// MarkFinished учитывает завершение sub-stage.
// SUCCEEDED и FAILED_CONTINUE открывают зависимые stages,
// остальные финальные статусы останавливают фазу.
func (s *PhaseState) MarkFinished(stageID uuid.UUID, status domain.ExecutionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, stageID)
	switch status {
	case domain.StatusSucceeded, domain.StatusFailedContinue:
		s.completed[stageID] = true
	default:
		s.failed[stageID] = status
	}
}

// Ready возвращает sub-stages, которые можно запускать.
func (s *PhaseState) Ready() []*domain.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.failed) > 0 {
		return nil
	}

	nodes := s.Graph.Ready(s.completed, s.running)
	ready := make([]*domain.Stage, 0, len(nodes))
	for _, n := range nodes {
		ready = append(ready, n.Stage)
	}
	return ready
}

// IsComplete — все sub-stages фазы завершились успешно.
func (s *PhaseState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.completed) == s.Graph.Size()
}

// HasFailed — хотя бы один sub-stage упал.
func (s *PhaseState) HasFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.failed) > 0
}

// PhaseStats — статистика фазы.
type PhaseStats struct {
	Total     int
	Completed int
	Running   int
	Failed    int
	Pending   int
}

// Stats возвращает статистику фазы.
func (s *PhaseState) Stats() PhaseStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.Graph.Size()
	return PhaseStats{
		Total:     total,
		Completed: len(s.completed),
		Running:   len(s.running),
		Failed:    len(s.failed),
		Pending:   total - len(s.completed) - len(s.running) - len(s.failed),
	}
}
