package cli

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/aggregate"
)

// NewAggregateCmd создаёт команду aggregate: свод результатов задач.
func NewAggregateCmd(envFn EnvFunc, outputFn func() *Output) *cobra.Command {
	var file string
	var exclude []string
	var mode string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Promote task results into stage context and outputs",
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
			records, err := ParseRecords(data)
			if err != nil {
				return err
			}

			agg := comp.Aggregator
			if cmd.Flags().Changed("exclude") || cmd.Flags().Changed("mode") {
				m, err := aggregate.ParseMode(mode)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("exclude") {
					exclude = agg.ExcludeKeys()
				}
				agg = aggregate.New(aggregate.Config{ExcludeKeys: exclude, Mode: m})
			}

			result := agg.Aggregate(records)
			if out.Structured() {
				return out.Data(map[string]any{
					"context": result.Context,
					"outputs": result.Outputs,
				})
			}

			keys := make([]string, 0, len(result.Context))
			for k := range result.Context {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			rows := make([][]string, len(keys))
			for i, k := range keys {
				_, inOutputs := result.Outputs[k]
				rows[i] = []string{k, strconv.FormatBool(inOutputs), compact(result.Context[k])}
			}
			out.Table([]string{"KEY", "OUTPUT", "VALUE"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Results file: list of records or stage context with kato.tasks")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Keys excluded from outputs (overrides config)")
	cmd.Flags().StringVar(&mode, "mode", string(aggregate.FirstMatch), "Match mode: first or last")
	cmd.MarkFlagRequired("file")

	return cmd
}

// compact — однострочное JSON-представление значения.
func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<invalid>"
	}
	const limit = 80
	if len(data) > limit {
		return string(data[:limit-3]) + "..."
	}
	return string(data)
}
