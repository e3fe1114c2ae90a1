// stagegraph-orchestrator — обрабатывает события жизненного цикла stages.
//
// Orchestrator:
//   - Получает stage.cancel / stage.restart / stage.completed из RabbitMQ
//   - Отменяет stages, отправляя очистку job в jobs.destroy
//   - Готовит stages к рестарту
//   - Планирует after/failure sub-stages и публикует готовые
//   - Отдаёт HTTP API для stages, /healthz и /metrics
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/stagegraph/internal/api"
	"github.com/shaiso/stagegraph/internal/app"
	"github.com/shaiso/stagegraph/internal/config"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/orchestrator"
	"github.com/shaiso/stagegraph/internal/repo"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting stagegraph-orchestrator")

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	telemetry.RegisterPoolMetrics(reg, pool)
	logger.Info("database connected")

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	publisher := mq.NewPublisher(mqConn, logger)
	logger.Info("RabbitMQ connected")

	comp, err := app.Build(cfg, app.Deps{
		Cleanup: mq.NewJobDestroyer(publisher),
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		logger.Error("failed to build stages", "error", err)
		os.Exit(1)
	}
	logger.Info("stages registered", "types", comp.Stages.Types())

	stageRepo := repo.NewStageRepo(pool)

	svc := orchestrator.New(orchestrator.Config{
		Store:          stageRepo,
		Definitions:    comp.Stages,
		Publisher:      publisher,
		Conn:           mqConn,
		HandlerTimeout: cfg.Orchestrator.HandlerTimeout.Duration(),
		Prefetch:       cfg.Orchestrator.Prefetch,
		Logger:         logger,
	})
	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: API + /healthz + /metrics
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		Store:       stageRepo,
		Definitions: comp.Stages,
		Publisher:   publisher,
		Logger:      logger,
	}).RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	svc.Stop()
	logger.Info("stagegraph-orchestrator stopped")
}
