// Package stages содержит определения типов stage и их реестр.
//
//   - registry.go — Registry: тип и алиасы → engine.StageDefinition
//   - runjob.go   — run job stage (задачи, отмена, рестарт, after-фаза)
//   - plugin.go   — API для stage, реализованных плагинами
//   - echo.go     — пример plugin stage
//
// Алиасы задаются явно при регистрации.
package stages
