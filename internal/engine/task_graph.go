package engine

import (
	"fmt"

	"github.com/shaiso/stagegraph/internal/domain"
)

// GraphType — тип графа задач.
type GraphType string

const (
	// GraphFull — граф может ветвиться (sub-graphs, loops задаются engine'ом).
	GraphFull GraphType = "FULL"

	// GraphLinear — строгая последовательность.
	GraphLinear GraphType = "LINEAR"
)

// TaskNode — узел графа задач.
type TaskNode struct {
	domain.TaskUnit

	// Index — позиция в порядке добавления.
	Index int
}

// TaskGraph — упорядоченный набор задач одного stage.
//
// Порядок Nodes — порядок выполнения по умолчанию: каждая задача
// зависит от предыдущей.
type TaskGraph struct {
	Type  GraphType
	Nodes []TaskNode
}

// Names возвращает имена задач в порядке графа.
func (g *TaskGraph) Names() []string {
	names := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		names[i] = n.Name
	}
	return names
}

// Len возвращает количество задач.
func (g *TaskGraph) Len() int {
	return len(g.Nodes)
}

// Get возвращает задачу по имени.
func (g *TaskGraph) Get(name string) (TaskNode, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return TaskNode{}, false
}

// TaskGraphBuilder собирает TaskGraph.
//
// Ошибки добавления копятся и возвращаются из Build, чтобы
// цепочка WithTask оставалась плоской.
type TaskGraphBuilder struct {
	graphType GraphType
	nodes     []TaskNode
	names     map[string]bool
	err       error
}

// NewTaskGraphBuilder создаёт builder графа заданного типа.
func NewTaskGraphBuilder(graphType GraphType) *TaskGraphBuilder {
	if graphType == "" {
		graphType = GraphFull
	}
	return &TaskGraphBuilder{
		graphType: graphType,
		names:     make(map[string]bool),
	}
}

// WithTask добавляет задачу в конец графа.
func (b *TaskGraphBuilder) WithTask(name string, task domain.Task) *TaskGraphBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case name == "":
		b.err = ErrEmptyTaskName
	case task == nil:
		b.err = fmt.Errorf("%w: %s", ErrNilTask, name)
	case b.names[name]:
		b.err = fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	default:
		b.names[name] = true
		b.nodes = append(b.nodes, TaskNode{
			TaskUnit: domain.TaskUnit{Name: name, Task: task},
			Index:    len(b.nodes),
		})
	}
	return b
}

// Has проверяет, добавлена ли задача.
func (b *TaskGraphBuilder) Has(name string) bool {
	return b.names[name]
}

// Build возвращает собранный граф или первую ошибку добавления.
func (b *TaskGraphBuilder) Build() (*TaskGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	nodes := make([]TaskNode, len(b.nodes))
	copy(nodes, b.nodes)
	return &TaskGraph{Type: b.graphType, Nodes: nodes}, nil
}
