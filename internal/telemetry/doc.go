// Package telemetry — логирование и метрики stagegraph.
//
//   - logging.go — slog логгер, логгер в context.Context, атрибуты stage
//   - metrics.go — Prometheus метрики lifecycle и пула соединений
//
// Логгер, положенный в контекст consumer'ом, достаётся через FromContext.
package telemetry
