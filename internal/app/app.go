// Package app собирает компоненты stagegraph из конфигурации.
// Используется cmd-бинарями и CLI.
package app

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/stagegraph/internal/aggregate"
	"github.com/shaiso/stagegraph/internal/config"
	"github.com/shaiso/stagegraph/internal/decorator"
	"github.com/shaiso/stagegraph/internal/lifecycle"
	"github.com/shaiso/stagegraph/internal/providers"
	"github.com/shaiso/stagegraph/internal/stages"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// Deps — внешние зависимости сборки.
type Deps struct {
	// Cleanup — исполнитель уничтожения job; nil — отмена без очистки.
	Cleanup lifecycle.Cleanup

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Components — собранные компоненты.
type Components struct {
	Config     *config.Config
	Aggregator *aggregate.Aggregator
	Decorators *decorator.Registry
	Lifecycle  *lifecycle.Controller
	Stages     *stages.Registry
}

// Build собирает реестр stages с провайдерами и агрегатором outputs.
func Build(cfg *config.Config, deps Deps) (*Components, error) {
	logger := telemetry.OrDefault(deps.Logger)

	mode, err := aggregate.ParseMode(cfg.PromoteOutputs.Mode)
	if err != nil {
		return nil, fmt.Errorf("promoteOutputs.mode: %w", err)
	}

	agg := aggregate.New(aggregate.Config{
		ExcludeKeys: cfg.PromoteOutputs.ExcludeKeysFromOutputs,
		Mode:        mode,
		Logger:      logger,
		Metrics:     deps.Metrics,
	})

	decorators := providers.Default(aggregate.NewPromoteOutputsTask(agg))

	lc := lifecycle.New(lifecycle.Config{
		Registry: decorators,
		Cleanup:  deps.Cleanup,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})

	reg, err := stages.DefaultRegistry(stages.RunJobConfig{
		Tasks:      stages.ExternalRunJobTasks(),
		Decorators: decorators,
		Lifecycle:  lc,
		Aliases:    cfg.RunJob.Aliases,
		Logger:     logger,
		Metrics:    deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("register stages: %w", err)
	}

	return &Components{
		Config:     cfg,
		Aggregator: agg,
		Decorators: decorators,
		Lifecycle:  lc,
		Stages:     reg,
	}, nil
}
