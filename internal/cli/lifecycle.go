package cli

import (
	"context"
	"maps"

	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/lifecycle"
)

// NewRestartCmd создаёт команду restart: контекст stage после
// подготовки к рестарту.
func NewRestartCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Show the stage context prepared for restart",
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := envFn(nil)
			if err != nil {
				return err
			}

			data, err := readFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			parsed, err := ParseStageFile(data)
			if err != nil {
				return err
			}

			def, err := comp.Stages.Get(parsed.Stage.Type)
			if err != nil {
				return err
			}
			def.PrepareForRestart(parsed.Stage)

			return outputFn().Data(parsed.Stage.Context)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Stage file, YAML or JSON (\"-\" for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}

type cancelView struct {
	Cancellable bool           `json:"cancellable"`
	Destroyed   bool           `json:"destroyed"`
	Details     map[string]any `json:"details"`
	Context     map[string]any `json:"context"`
}

// NewCancelCmd создаёт команду cancel: dry-run отмены stage.
// Cleanup не выполняется, показывается переданный ему контекст.
func NewCancelCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Dry-run stage cancellation and show the cleanup context",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := cancelView{Details: map[string]any{}}
			cleanup := lifecycle.CleanupFunc(func(_ context.Context, details map[string]any) error {
				view.Destroyed = true
				view.Details = maps.Clone(details)
				return nil
			})

			comp, err := envFn(cleanup)
			if err != nil {
				return err
			}

			data, err := readFile(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			parsed, err := ParseStageFile(data)
			if err != nil {
				return err
			}

			def, err := comp.Stages.Get(parsed.Stage.Type)
			if err != nil {
				return err
			}
			if c, ok := def.(engine.CancellableStage); ok {
				view.Cancellable = true
				c.Cancel(cmd.Context(), parsed.Stage)
			}
			view.Context = parsed.Stage.Context

			return outputFn().Data(view)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Stage file, YAML or JSON (\"-\" for stdin)")
	cmd.MarkFlagRequired("file")

	return cmd
}
