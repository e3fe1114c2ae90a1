// stagegraph CLI — offline-инструмент для графов stage и агрегации
// результатов, плюс публикация событий stage для orchestrator.
//
// Использование:
//
//	stagegraph [--config FILE] [--output table|json|yaml] <command> [flags]
//
// Команды:
//
//	graph      Граф задач и план sub-stages
//	aggregate  Свод результатов задач
//	restart    Контекст после подготовки к рестарту
//	cancel     Dry-run отмены stage
//	stages     Зарегистрированные типы stage
//	event      Публикация событий stage в RabbitMQ
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/app"
	"github.com/shaiso/stagegraph/internal/cli"
	"github.com/shaiso/stagegraph/internal/config"
	"github.com/shaiso/stagegraph/internal/lifecycle"
	"github.com/shaiso/stagegraph/internal/mq"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configPath string
	var format string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "stagegraph",
		Short:         "stagegraph CLI — stage graphs and output aggregation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case cli.FormatTable, cli.FormatJSON, cli.FormatYAML:
				return nil
			default:
				return fmt.Errorf("%w: %s", cli.ErrUnknownFormat, format)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&format, "output", "o", cli.FormatTable, "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	logger := func() *slog.Logger {
		level := slog.LevelError
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	envFn := func(cleanup lifecycle.Cleanup) (*app.Components, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		return app.Build(cfg, app.Deps{Cleanup: cleanup, Logger: logger()})
	}
	outputFn := func() *cli.Output { return cli.NewOutput(format) }

	publisherFn := func(ctx context.Context) (cli.EventPublisher, func() error, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		log := logger()
		conn, err := mq.NewConnection(cfg.RabbitMQ.URL, log)
		if err != nil {
			return nil, nil, err
		}
		if err := mq.SetupTopology(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return mq.NewPublisher(conn, log), conn.Close, nil
	}

	rootCmd.AddCommand(
		cli.NewGraphCmd(envFn, outputFn),
		cli.NewAggregateCmd(envFn, outputFn),
		cli.NewRestartCmd(envFn, outputFn),
		cli.NewCancelCmd(envFn, outputFn),
		cli.NewStagesCmd(envFn, outputFn),
		cli.NewEventCmd(publisherFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
