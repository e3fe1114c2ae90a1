// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий stage и запросов на destroy
//   - consumer.go   — потребление сообщений из очередей
//   - destroyer.go  — JobDestroyer, внешняя очистка job через очередь
//
// Типы сообщений:
//   - stage.cancel    — отменить stage
//   - stage.restart   — подготовить stage к рестарту
//   - stage.completed — задачи stage завершены, планировать after-stages
//   - stage.ready     — sub-stage можно запускать
//   - job.destroy     — уничтожить job по контексту очистки
//
// Exchanges:
//   - stagegraph.stages — события stage
//   - stagegraph.jobs   — запросы к исполнителю job
//   - stagegraph.dlq    — dead letter queue
package mq
