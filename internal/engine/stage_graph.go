package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
)

// StageNode — узел в графе sub-stages.
type StageNode struct {
	// Stage — sub-stage.
	Stage *domain.Stage

	// ID — идентификатор stage.
	ID uuid.UUID

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, после которых выполняется этот узел.
	DependsOn []*StageNode

	// Dependents — узлы, которые выполняются после этого узла.
	Dependents []*StageNode
}

// Edge — ребро "To выполняется после From".
type Edge struct {
	From uuid.UUID
	To   uuid.UUID
}

// StageGraph — направленный граф sub-stages одной фазы родительского stage.
//
// Связь с родителем задаётся фазой, а не рёбрами: для BEFORE задачи
// родителя ждут все Sinks, для AFTER все Roots стартуют после задач
// родителя, FAILURE-узлы запускает сам stage.
type StageGraph struct {
	// Parent — родительский stage.
	Parent *domain.Stage

	// Phase — фаза, которую описывает граф.
	Phase domain.Phase

	// Nodes — все узлы графа (stageID → node).
	Nodes map[uuid.UUID]*StageNode

	// Order — топологически отсортированный список узлов.
	Order []*StageNode

	// nodes — узлы в порядке добавления.
	nodes []*StageNode

	// edges — рёбра в порядке добавления.
	edges []Edge
}

func newStageGraph(parent *domain.Stage, phase domain.Phase) *StageGraph {
	return &StageGraph{
		Parent: parent,
		Phase:  phase,
		Nodes:  make(map[uuid.UUID]*StageNode),
	}
}

// Size возвращает количество узлов.
func (g *StageGraph) Size() int {
	return len(g.nodes)
}

// Stages возвращает stages в порядке добавления.
func (g *StageGraph) Stages() []*domain.Stage {
	stages := make([]*domain.Stage, len(g.nodes))
	for i, n := range g.nodes {
		stages[i] = n.Stage
	}
	return stages
}

// Edges возвращает рёбра в порядке добавления.
func (g *StageGraph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// GetNode возвращает узел по ID stage.
func (g *StageGraph) GetNode(id uuid.UUID) *StageNode {
	return g.Nodes[id]
}

// Roots возвращает узлы без входящих рёбер в порядке добавления.
func (g *StageGraph) Roots() []*StageNode {
	roots := make([]*StageNode, 0)
	for _, n := range g.nodes {
		if n.InDegree == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Sinks возвращает узлы без исходящих рёбер в порядке добавления.
func (g *StageGraph) Sinks() []*StageNode {
	sinks := make([]*StageNode, 0)
	for _, n := range g.nodes {
		if len(n.Dependents) == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// Ready возвращает узлы, которые engine может запустить сейчас.
//
// Узел готов, если все его зависимости в completed, а сам он
// ещё не завершён и не в running. Узлы без ребра между собой
// engine вправе выполнять параллельно.
func (g *StageGraph) Ready(completed, running map[uuid.UUID]bool) []*StageNode {
	ready := make([]*StageNode, 0)
	for _, n := range g.nodes {
		if completed[n.ID] || running[n.ID] {
			continue
		}
		allDepsCompleted := true
		for _, dep := range n.DependsOn {
			if !completed[dep.ID] {
				allDepsCompleted = false
				break
			}
		}
		if allDepsCompleted {
			ready = append(ready, n)
		}
	}
	return ready
}

// addNode добавляет узел, если его ещё нет.
func (g *StageGraph) addNode(stage *domain.Stage) *StageNode {
	if n, ok := g.Nodes[stage.ID]; ok {
		return n
	}
	n := &StageNode{
		Stage:      stage,
		ID:         stage.ID,
		DependsOn:  make([]*StageNode, 0),
		Dependents: make([]*StageNode, 0),
	}
	g.Nodes[stage.ID] = n
	g.nodes = append(g.nodes, n)
	return n
}

// addEdge добавляет ребро между узлами.
// Дубликаты игнорируются, чтобы не считать InDegree дважды.
func (g *StageGraph) addEdge(from, to *StageNode) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
	g.edges = append(g.edges, Edge{From: from.ID, To: to.ID})
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Порядок стабилен: при равенстве выигрывает узел, добавленный раньше.
func (g *StageGraph) topologicalSort() ([]*StageNode, error) {
	inDegree := make(map[uuid.UUID]int, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n.ID] = n.InDegree
	}

	queue := g.Roots()
	order := make([]*StageNode, 0, len(g.nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCyclicDependency
	}
	return order, nil
}

// StageGraphBuilder собирает граф sub-stages одной фазы.
//
// Добавленный stage получает ParentStageID родителя и, если фаза
// не задана, фазу builder'а.
type StageGraphBuilder struct {
	graph *StageGraph
	err   error
}

// NewStageGraphBuilder создаёт builder для фазы phase родителя parent.
func NewStageGraphBuilder(parent *domain.Stage, phase domain.Phase) *StageGraphBuilder {
	return &StageGraphBuilder{graph: newStageGraph(parent, phase)}
}

// NewBeforeStagesBuilder — builder для фазы BEFORE.
func NewBeforeStagesBuilder(parent *domain.Stage) *StageGraphBuilder {
	return NewStageGraphBuilder(parent, domain.PhaseBefore)
}

// NewAfterStagesBuilder — builder для фазы AFTER.
func NewAfterStagesBuilder(parent *domain.Stage) *StageGraphBuilder {
	return NewStageGraphBuilder(parent, domain.PhaseAfter)
}

// NewFailureStagesBuilder — builder для фазы FAILURE.
func NewFailureStagesBuilder(parent *domain.Stage) *StageGraphBuilder {
	return NewStageGraphBuilder(parent, domain.PhaseFailure)
}

// Phase возвращает фазу builder'а.
func (b *StageGraphBuilder) Phase() domain.Phase {
	return b.graph.Phase
}

// Parent возвращает родительский stage.
func (b *StageGraphBuilder) Parent() *domain.Stage {
	return b.graph.Parent
}

// Add добавляет stage как отдельный узел без рёбер.
func (b *StageGraphBuilder) Add(stage *domain.Stage) *StageGraphBuilder {
	if b.err != nil {
		return b
	}
	if stage == nil {
		b.err = ErrNilStage
		return b
	}
	b.adopt(stage)
	b.graph.addNode(stage)
	return b
}

// Connect добавляет ребро "next выполняется после prev".
// Отсутствующие узлы добавляются.
func (b *StageGraphBuilder) Connect(prev, next *domain.Stage) *StageGraphBuilder {
	if b.err != nil {
		return b
	}
	if prev == nil || next == nil {
		b.err = ErrNilStage
		return b
	}
	if prev.ID == next.ID {
		b.err = fmt.Errorf("%w: %s", ErrSelfDependency, prev.ID)
		return b
	}
	b.adopt(prev)
	b.adopt(next)
	from := b.graph.addNode(prev)
	to := b.graph.addNode(next)
	b.graph.addEdge(from, to)
	return b
}

// ConnectPhase связывает stages фазы phase.
//
// Из candidates берутся stages фазы phase: первый добавляется
// отдельным узлом, каждый следующий соединяется с предыдущим (цепочка
// без ветвлений). Stages из parallel той же фазы добавляются без рёбер.
// Пустой отфильтрованный список — no-op.
func (b *StageGraphBuilder) ConnectPhase(candidates, parallel []*domain.Stage, phase domain.Phase) *StageGraphBuilder {
	chain := FilterPhase(candidates, phase)
	if len(chain) > 0 {
		b.Add(chain[0])
	}
	for i := 1; i < len(chain); i++ {
		b.Connect(chain[i-1], chain[i])
	}
	for _, s := range FilterPhase(parallel, phase) {
		b.Add(s)
	}
	return b
}

// AddIsolated добавляет stages без рёбер между ними.
// Используется для FAILURE-фазы: восстановление stage связывает сам.
func (b *StageGraphBuilder) AddIsolated(stages []*domain.Stage) *StageGraphBuilder {
	for _, s := range stages {
		b.Add(s)
	}
	return b
}

// Build проверяет граф на циклы и возвращает его.
func (b *StageGraphBuilder) Build() (*StageGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	order, err := b.graph.topologicalSort()
	if err != nil {
		return nil, err
	}
	b.graph.Order = order
	return b.graph, nil
}

// adopt привязывает stage к родителю и фазе builder'а.
func (b *StageGraphBuilder) adopt(stage *domain.Stage) {
	parent := b.graph.Parent
	if parent != nil && stage.ParentStageID == nil && stage.ID != parent.ID {
		parentID := parent.ID
		stage.ParentStageID = &parentID
		if stage.ExecutionID == uuid.Nil {
			stage.ExecutionID = parent.ExecutionID
		}
	}
	if stage.SyntheticStageOwner == "" {
		stage.SyntheticStageOwner = b.graph.Phase
	}
}

// FilterPhase возвращает stages фазы phase с сохранением порядка.
func FilterPhase(stages []*domain.Stage, phase domain.Phase) []*domain.Stage {
	filtered := make([]*domain.Stage, 0, len(stages))
	for _, s := range stages {
		if s != nil && s.SyntheticStageOwner == phase {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
