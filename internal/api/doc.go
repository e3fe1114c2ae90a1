// Package api содержит HTTP API для просмотра stages и отправки
// событий stage.
//
// Структура:
//   - handler.go       — Handler с DI (хранилище, реестр stages, publisher, logger)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — middleware (request id, logging, recovery)
//   - response.go      — унифицированные JSON-ответы и обработка ошибок
//   - dto.go           — Data Transfer Objects (request/response)
//   - stage_handler.go — обработчики для /stages и /executions
//
// Отмена и рестарт асинхронны: API публикует событие, stage
// обрабатывает orchestrator.
package api
