// Package orchestrator связывает события stage из RabbitMQ с
// определениями stages.
//
// Service отвечает за:
//   - Отмену stage (stage.cancel) через Cancel определения
//   - Подготовку к рестарту (stage.restart)
//   - Планирование after/failure sub-stages (stage.completed)
//   - Отслеживание sub-stages фазы и публикацию готовых (stage.ready)
//
// Запуск задач остаётся на стороне engine: Service только планирует
// и сохраняет stages.
package orchestrator
