package mq

import "errors"

// Ошибки mq.
var (
	// ErrNoChannel — соединение не открыто.
	ErrNoChannel = errors.New("no channel available")

	// ErrNoPublisher — RabbitMQ недоступен, публиковать некуда.
	ErrNoPublisher = errors.New("publisher is not configured")

	// ErrPermanent — обработку сообщения бессмысленно повторять;
	// сообщение уходит в DLQ без requeue.
	ErrPermanent = errors.New("permanent message failure")
)
