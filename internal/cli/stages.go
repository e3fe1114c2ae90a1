package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/engine"
)

type stageTypeView struct {
	Type              string   `json:"type"`
	Aliases           []string `json:"aliases,omitempty"`
	Cancellable       bool     `json:"cancellable"`
	ForceCacheRefresh bool     `json:"forceCacheRefresh"`
	CanManuallySkip   bool     `json:"canManuallySkip"`
}

// NewStagesCmd создаёт команду stages: зарегистрированные типы stage.
func NewStagesCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List registered stage types",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := envFn(nil)
			if err != nil {
				return err
			}
			out := outputFn()

			types := comp.Stages.Types()
			views := make([]stageTypeView, 0, len(types))
			rows := make([][]string, 0, len(types))
			for _, t := range types {
				def, err := comp.Stages.Get(t)
				if err != nil {
					return err
				}
				_, cancellable := def.(engine.CancellableStage)
				v := stageTypeView{
					Type:              t,
					Aliases:           def.Aliases(),
					Cancellable:       cancellable,
					ForceCacheRefresh: comp.Config.ForceCacheRefresh(t),
					CanManuallySkip:   def.CanManuallySkip(),
				}
				views = append(views, v)
				rows = append(rows, []string{
					v.Type,
					strings.Join(v.Aliases, ","),
					strconv.FormatBool(v.Cancellable),
					strconv.FormatBool(v.ForceCacheRefresh),
					strconv.FormatBool(v.CanManuallySkip),
				})
			}

			return out.Print([]string{"TYPE", "ALIASES", "CANCELLABLE", "FORCE_CACHE_REFRESH", "MANUAL_SKIP"}, rows, views)
		},
	}
}
