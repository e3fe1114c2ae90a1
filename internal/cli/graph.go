package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

type stageNodeView struct {
	ID        string   `json:"id"`
	RefID     string   `json:"refId,omitempty"`
	Type      string   `json:"type"`
	Parallel  bool     `json:"parallel,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// phaseView — граф одной фазы. Source: "definition" — sub-stages
// определения типа, "file" — sub-stages, перечисленные в файле.
type phaseView struct {
	Phase  domain.Phase    `json:"phase"`
	Source string          `json:"source"`
	Stages []stageNodeView `json:"stages"`
	Edges  int             `json:"edges"`
}

type graphView struct {
	Type            string           `json:"type"`
	GraphType       engine.GraphType `json:"graphType"`
	Tasks           []string         `json:"tasks"`
	CanManuallySkip bool             `json:"canManuallySkip"`
	Phases          []phaseView      `json:"phases"`
}

// NewGraphCmd создаёт команду graph: граф задач и план sub-stages.
func NewGraphCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var file string
	var evaluate bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the task graph and sub-stage plan of a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := envFn(nil)
			if err != nil {
				return err
			}
			out := outputFn()

			data, err := readFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			parsed, err := ParseStageFile(data)
			if err != nil {
				return err
			}

			if evaluate {
				if err := engine.EvaluateContext(parsed.Stage); err != nil {
					return err
				}
			}

			def, err := comp.Stages.Get(parsed.Stage.Type)
			if err != nil {
				return err
			}
			composition, err := engine.Compose(def, parsed.Stage)
			if err != nil {
				return err
			}

			var phases []phaseView
			if composition.Before.Size() > 0 {
				phases = append(phases, newPhaseView(composition.Before, sourceDefinition))
			}
			declared, err := planPhases(parsed)
			if err != nil {
				return err
			}
			phases = append(phases, declared...)

			view := graphView{
				Type:            def.Type(),
				GraphType:       composition.Tasks.Type,
				Tasks:           composition.Tasks.Names(),
				CanManuallySkip: def.CanManuallySkip(),
				Phases:          phases,
			}
			if out.Structured() {
				return out.Data(view)
			}

			rows := make([][]string, len(view.Tasks))
			for i, name := range view.Tasks {
				rows[i] = []string{strconv.Itoa(i), name}
			}
			out.Table([]string{"INDEX", "TASK"}, rows)

			for _, p := range view.Phases {
				out.Section(fmt.Sprintf("%s from %s (%d stages, %d edges)", p.Phase, p.Source, len(p.Stages), p.Edges))
				rows := make([][]string, len(p.Stages))
				for i, s := range p.Stages {
					rows[i] = []string{s.RefID, s.Type, s.ID, strconv.FormatBool(s.Parallel), strings.Join(s.DependsOn, ",")}
				}
				out.Table([]string{"REF", "TYPE", "ID", "PARALLEL", "DEPENDS_ON"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Stage file, YAML or JSON (\"-\" for stdin)")
	cmd.Flags().BoolVar(&evaluate, "evaluate", true, "Evaluate context expressions before planning")
	cmd.MarkFlagRequired("file")

	return cmd
}

const (
	sourceDefinition = "definition"
	sourceFile       = "file"
)

// planPhases строит графы фаз из sub-stages файла.
// Пустые фазы пропускаются.
func planPhases(parsed *engine.ParsedStage) ([]phaseView, error) {
	parent := parsed.Stage
	builders := []*engine.StageGraphBuilder{
		engine.NewBeforeStagesBuilder(parent).
			ConnectPhase(parsed.Around(), parsed.ParallelStages(), domain.PhaseBefore),
		engine.NewAfterStagesBuilder(parent).
			ConnectPhase(parsed.Around(), parsed.ParallelStages(), domain.PhaseAfter),
		engine.NewFailureStagesBuilder(parent).
			AddIsolated(engine.FilterPhase(parsed.Children(), domain.PhaseFailure)),
	}

	phases := make([]phaseView, 0, len(builders))
	for _, b := range builders {
		graph, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", b.Phase(), err)
		}
		if graph.Size() == 0 {
			continue
		}
		phases = append(phases, newPhaseView(graph, sourceFile))
	}
	return phases, nil
}

func newPhaseView(graph *engine.StageGraph, source string) phaseView {
	view := phaseView{Phase: graph.Phase, Source: source, Edges: len(graph.Edges())}
	for _, n := range graph.Order {
		deps := make([]string, 0, len(n.DependsOn))
		for _, d := range n.DependsOn {
			deps = append(deps, refOrID(d.Stage))
		}
		view.Stages = append(view.Stages, stageNodeView{
			ID:        n.ID.String(),
			RefID:     n.Stage.RefID,
			Type:      n.Stage.Type,
			Parallel:  n.Stage.Parallel,
			DependsOn: deps,
		})
	}
	return view
}

func refOrID(s *domain.Stage) string {
	if s.RefID != "" {
		return s.RefID
	}
	return s.ID.String()
}
