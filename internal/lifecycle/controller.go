package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/shaiso/stagegraph/internal/decorator"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/manifest"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// Cleanup — внешняя задача уничтожения job.
// Получает контекст очистки (jobName, cloudProvider, region,
// credentials и ключи провайдера).
type Cleanup interface {
	Destroy(ctx context.Context, cleanup map[string]any) error
}

// CleanupFunc позволяет использовать функцию как Cleanup.
type CleanupFunc func(ctx context.Context, cleanup map[string]any) error

// Destroy реализует Cleanup.
func (f CleanupFunc) Destroy(ctx context.Context, cleanup map[string]any) error {
	return f(ctx, cleanup)
}

// Config — зависимости Controller.
type Config struct {
	Registry *decorator.Registry
	Cleanup  Cleanup
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
}

// Controller управляет жизненным циклом run job stage.
type Controller struct {
	registry *decorator.Registry
	cleanup  Cleanup
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// New создаёт Controller.
func New(cfg Config) *Controller {
	return &Controller{
		registry: cfg.Registry,
		cleanup:  cfg.Cleanup,
		logger:   telemetry.OrDefault(cfg.Logger),
		metrics:  cfg.Metrics,
	}
}

// Cancel отменяет stage.
//
// Без jobStatus в контексте возвращается пустой результат и Cleanup
// не вызывается. Иначе строится контекст очистки, провайдер может его
// переписать, контекст stage заменяется им и вызывается Cleanup.
// Ошибки не возвращаются.
func (c *Controller) Cancel(ctx context.Context, stage *domain.Stage) engine.CancelResult {
	logger := telemetry.WithStage(c.logger, stage)
	logger.Info("canceling run job stage")

	result := engine.EmptyCancelResult(stage)
	if !stage.Context.HasJobStatus() {
		c.metrics.ObserveCancel(telemetry.CancelSkipped)
		return result
	}

	var cleanup map[string]any
	err := recovered(func() (err error) {
		cleanup, err = c.cleanupContext(stage)
		return err
	})
	if err != nil {
		logger.Error("failed to cancel run job", "error", err)
		c.metrics.ObserveCancel(telemetry.CancelFailed)
		return result
	}
	result.Details = cleanup

	stage.Context = domain.NewStageContext(maps.Clone(cleanup))

	if c.cleanup == nil {
		logger.Error("failed to cancel run job", "error", ErrNoCleanup)
		c.metrics.ObserveCancel(telemetry.CancelFailed)
		return result
	}

	if err := recovered(func() error { return c.cleanup.Destroy(ctx, cleanup) }); err != nil {
		logger.Error("failed to cancel run job", "error", err)
		c.metrics.ObserveCleanupFailure()
		c.metrics.ObserveCancel(telemetry.CancelFailed)
		return result
	}

	c.metrics.ObserveCancel(telemetry.CancelCleaned)
	return result
}

// recovered вызывает fn и превращает панику в ErrCleanupPanic.
func recovered(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", ErrCleanupPanic, v)
		}
	}()
	return fn()
}

// cleanupContext строит контекст очистки и применяет провайдера.
func (c *Controller) cleanupContext(stage *domain.Stage) (map[string]any, error) {
	job, err := domain.DecodeRunJobContext(stage.Context)
	if err != nil {
		return nil, err
	}
	if job.JobStatus == nil {
		return nil, ErrNoJobStatus
	}

	cleanup := map[string]any{
		domain.CleanupKeyJobName:       job.JobStatus.Name,
		domain.CleanupKeyCloudProvider: job.CloudProvider,
		domain.CleanupKeyRegion:        job.JobStatus.Region,
		domain.CleanupKeyCredentials:   job.Credentials,
	}

	if rewriter, ok := c.registry.CleanupRewriter(job.CloudProvider); ok {
		if err := rewriter.RewriteCleanupContext(job, cleanup); err != nil {
			return nil, fmt.Errorf("rewrite cleanup context for %s: %w", job.CloudProvider, err)
		}
	}
	return cleanup, nil
}

// PrepareForRestart переносит детали прошлого запуска в restartDetails.
//
// Перенос выполняется только при наличии jobStatus, существующий
// restartDetails дополняется. Ключи прошлого запуска удаляются
// из контекста всегда.
func (c *Controller) PrepareForRestart(stage *domain.Stage) {
	ctx := stage.Context

	if ctx.Has(domain.KeyJobStatus) {
		details := ctx.Map(domain.KeyRestartDetails)
		if details == nil {
			details = make(map[string]any)
		}
		for _, key := range domain.RestartArchivedKeys {
			details[key] = ctx.Get(key)
		}
		ctx.Set(domain.KeyRestartDetails, details)
	}

	for _, key := range domain.RestartArchivedKeys {
		ctx.Delete(key)
	}

	c.metrics.ObserveRestart()
	telemetry.WithStage(c.logger, stage).Info("stage prepared for restart")
}

// ApplyAfterPhase выполняется после задач stage.
//
// Ссылка на логи вычисляется до очистки outputs, поэтому noOutput
// её не затрагивает.
func (c *Controller) ApplyAfterPhase(stage *domain.Stage) {
	logs, err := manifest.ExecutionLogs(stage.Context)
	if err != nil {
		telemetry.WithStage(c.logger, stage).Warn("failed to read execution logs from manifest", "error", err)
	}

	if stage.Context.NoOutput() {
		stage.SetOutputs(nil)
	}

	stage.Context.Merge(logs)
}
