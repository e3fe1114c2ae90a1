package telemetry

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты отмены stage (label result).
const (
	CancelSkipped = "skipped"
	CancelCleaned = "cleaned"
	CancelFailed  = "failed"
)

// Metrics — метрики ядра композиции stage.
//
// Все методы безопасны для nil-получателя: компоненты, созданные
// без метрик (например, в тестах), просто ничего не считают.
type Metrics struct {
	cancellations     *prometheus.CounterVec
	cleanupFailures   prometheus.Counter
	conversionFailure *prometheus.CounterVec
	taskGraphNodes    prometheus.Histogram
	restarts          prometheus.Counter
}

// NewMetrics регистрирует метрики в reg.
// nil reg означает prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegraph_cancellations_total",
			Help: "Stage cancellations by result.",
		}, []string{"result"}),
		cleanupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stagegraph_cleanup_failures_total",
			Help: "Cleanup calls that failed during stage cancellation.",
		}),
		conversionFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegraph_output_conversion_failures_total",
			Help: "Promoted output values that could not be converted.",
		}, []string{"key"}),
		taskGraphNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stagegraph_task_graph_nodes",
			Help:    "Number of tasks in built task graphs.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15},
		}),
		restarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "stagegraph_restarts_total",
			Help: "Stages prepared for restart.",
		}),
	}
}

// ObserveCancel увеличивает счётчик отмен с результатом result.
func (m *Metrics) ObserveCancel(result string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(result).Inc()
}

// ObserveCleanupFailure увеличивает счётчик неудачных очисток.
func (m *Metrics) ObserveCleanupFailure() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// ObserveConversionFailure увеличивает счётчик ошибок конвертации ключа.
func (m *Metrics) ObserveConversionFailure(key string) {
	if m == nil {
		return
	}
	m.conversionFailure.WithLabelValues(key).Inc()
}

// ObserveTaskGraph записывает размер построенного графа задач.
func (m *Metrics) ObserveTaskGraph(nodes int) {
	if m == nil {
		return
	}
	m.taskGraphNodes.Observe(float64(nodes))
}

// ObserveRestart увеличивает счётчик рестартов.
func (m *Metrics) ObserveRestart() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}

// RegisterPoolMetrics экспортирует состояние пула соединений БД.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	gauge := func(name, help string, value func(*pgxpool.Stat) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "stagegraph_db_pool_" + name,
			Help: help,
		}, func() float64 {
			return value(pool.Stat())
		})
	}

	gauge("max_conns", "Maximum size of the pool.", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) })
	gauge("total_conns", "Total connections in the pool.", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) })
	gauge("acquired_conns", "Connections currently acquired.", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) })
	gauge("idle_conns", "Idle connections.", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) })
	gauge("empty_acquire_total", "Acquires that waited for a connection.", func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) })
}
