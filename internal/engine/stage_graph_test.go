package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
)

func newParent() *domain.Stage {
	return domain.NewStage(uuid.New(), "runJob", nil)
}

func subStages(parent *domain.Stage, phase domain.Phase, n int) []*domain.Stage {
	stages := make([]*domain.Stage, n)
	for i := range stages {
		stages[i] = domain.NewSubStage(parent, "wait", phase, nil)
	}
	return stages
}

func TestConnectPhase_SequentialChain(t *testing.T) {
	parent := newParent()
	after := subStages(parent, domain.PhaseAfter, 3)

	graph, err := NewAfterStagesBuilder(parent).
		ConnectPhase(after, nil, domain.PhaseAfter).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.Size() != 3 {
		t.Errorf("expected 3 stages, got %d", graph.Size())
	}

	// N stages — N-1 рёбер
	edges := graph.Edges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0] != (Edge{From: after[0].ID, To: after[1].ID}) {
		t.Errorf("unexpected first edge: %+v", edges[0])
	}
	if edges[1] != (Edge{From: after[1].ID, To: after[2].ID}) {
		t.Errorf("unexpected second edge: %+v", edges[1])
	}

	roots := graph.Roots()
	if len(roots) != 1 || roots[0].ID != after[0].ID {
		t.Error("first after-stage should be the only root")
	}
	sinks := graph.Sinks()
	if len(sinks) != 1 || sinks[0].ID != after[2].ID {
		t.Error("last after-stage should be the only sink")
	}
}

func TestConnectPhase_FiltersByPhase(t *testing.T) {
	parent := newParent()
	before := domain.NewSubStage(parent, "check", domain.PhaseBefore, nil)
	after := domain.NewSubStage(parent, "wait", domain.PhaseAfter, nil)

	graph, err := NewBeforeStagesBuilder(parent).
		ConnectPhase([]*domain.Stage{after, before}, nil, domain.PhaseBefore).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.Size() != 1 {
		t.Fatalf("expected 1 stage, got %d", graph.Size())
	}
	if graph.GetNode(before.ID) == nil {
		t.Error("before-stage should be in graph")
	}
	if graph.GetNode(after.ID) != nil {
		t.Error("after-stage should not be in before graph")
	}
}

func TestConnectPhase_Empty(t *testing.T) {
	parent := newParent()

	graph, err := NewAfterStagesBuilder(parent).
		ConnectPhase(nil, nil, domain.PhaseAfter).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if graph.Size() != 0 || len(graph.Edges()) != 0 {
		t.Error("empty phase should produce empty graph")
	}
}

func TestConnectPhase_ParallelStagesHaveNoEdges(t *testing.T) {
	parent := newParent()
	chain := subStages(parent, domain.PhaseBefore, 2)
	parallel := subStages(parent, domain.PhaseBefore, 2)

	graph, err := NewBeforeStagesBuilder(parent).
		ConnectPhase(chain, parallel, domain.PhaseBefore).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if graph.Size() != 4 {
		t.Errorf("expected 4 stages, got %d", graph.Size())
	}
	if len(graph.Edges()) != 1 {
		t.Errorf("expected 1 edge, got %d", len(graph.Edges()))
	}
	for _, p := range parallel {
		n := graph.GetNode(p.ID)
		if n.InDegree != 0 || len(n.Dependents) != 0 {
			t.Errorf("parallel stage %s should be isolated", p.ID)
		}
	}
}

func TestAddIsolated_FailureStages(t *testing.T) {
	parent := newParent()
	failure := subStages(parent, domain.PhaseFailure, 3)

	graph, err := NewFailureStagesBuilder(parent).AddIsolated(failure).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(graph.Edges()) != 0 {
		t.Errorf("failure stages should have no edges, got %d", len(graph.Edges()))
	}
	if len(graph.Roots()) != 3 {
		t.Errorf("expected 3 roots, got %d", len(graph.Roots()))
	}
}

func TestStageGraphBuilder_AdoptsStage(t *testing.T) {
	parent := newParent()
	orphan := domain.NewStage(uuid.Nil, "wait", nil)

	graph, err := NewAfterStagesBuilder(parent).Add(orphan).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := graph.Stages()[0]
	if s.ParentStageID == nil || *s.ParentStageID != parent.ID {
		t.Error("stage should be attached to parent")
	}
	if s.ExecutionID != parent.ExecutionID {
		t.Error("stage should inherit execution id")
	}
	if s.SyntheticStageOwner != domain.PhaseAfter {
		t.Errorf("expected STAGE_AFTER, got %s", s.SyntheticStageOwner)
	}
}

func TestStageGraphBuilder_DuplicateEdge(t *testing.T) {
	parent := newParent()
	s := subStages(parent, domain.PhaseAfter, 2)

	graph, err := NewAfterStagesBuilder(parent).
		Connect(s[0], s[1]).
		Connect(s[0], s[1]).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(graph.Edges()) != 1 {
		t.Errorf("duplicate edge should be ignored, got %d edges", len(graph.Edges()))
	}
	if graph.GetNode(s[1].ID).InDegree != 1 {
		t.Error("InDegree should be 1")
	}
}

func TestStageGraphBuilder_Errors(t *testing.T) {
	parent := newParent()
	s := subStages(parent, domain.PhaseAfter, 3)

	t.Run("self dependency", func(t *testing.T) {
		_, err := NewAfterStagesBuilder(parent).Connect(s[0], s[0]).Build()
		if !errors.Is(err, ErrSelfDependency) {
			t.Errorf("expected ErrSelfDependency, got %v", err)
		}
	})

	t.Run("nil stage", func(t *testing.T) {
		_, err := NewAfterStagesBuilder(parent).Add(nil).Build()
		if !errors.Is(err, ErrNilStage) {
			t.Errorf("expected ErrNilStage, got %v", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := NewAfterStagesBuilder(parent).
			Connect(s[0], s[1]).
			Connect(s[1], s[2]).
			Connect(s[2], s[0]).
			Build()
		if !errors.Is(err, ErrCyclicDependency) {
			t.Errorf("expected ErrCyclicDependency, got %v", err)
		}
	})
}

func TestStageGraph_Ready(t *testing.T) {
	// A → B → D
	// A → C → D
	parent := newParent()
	s := subStages(parent, domain.PhaseAfter, 4)
	a, b, c, d := s[0], s[1], s[2], s[3]

	graph, err := NewAfterStagesBuilder(parent).
		Connect(a, b).
		Connect(a, c).
		Connect(b, d).
		Connect(c, d).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ready := graph.Ready(map[uuid.UUID]bool{}, map[uuid.UUID]bool{})
	if len(ready) != 1 || ready[0].ID != a.ID {
		t.Fatal("only A should be ready at start")
	}

	completed := map[uuid.UUID]bool{a.ID: true}
	ready = graph.Ready(completed, map[uuid.UUID]bool{})
	if len(ready) != 2 {
		t.Fatalf("B and C should be ready, got %d", len(ready))
	}

	ready = graph.Ready(completed, map[uuid.UUID]bool{b.ID: true})
	if len(ready) != 1 || ready[0].ID != c.ID {
		t.Error("only C should be ready while B is running")
	}

	completed[b.ID] = true
	completed[c.ID] = true
	ready = graph.Ready(completed, map[uuid.UUID]bool{})
	if len(ready) != 1 || ready[0].ID != d.ID {
		t.Error("D should be ready after B and C")
	}

	if graph.Order[0].ID != a.ID || graph.Order[3].ID != d.ID {
		t.Error("topological order should start with A and end with D")
	}
}

func TestFilterPhase(t *testing.T) {
	parent := newParent()
	before := domain.NewSubStage(parent, "a", domain.PhaseBefore, nil)
	after := domain.NewSubStage(parent, "b", domain.PhaseAfter, nil)

	got := FilterPhase([]*domain.Stage{before, nil, after}, domain.PhaseAfter)
	if len(got) != 1 || got[0] != after {
		t.Error("FilterPhase should keep only after-stage")
	}
}
