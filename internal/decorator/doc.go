// Package decorator выбирает поведение, специфичное для cloud provider.
//
// Decorator объявляет, какие дискриминаторы (значение cloudProvider)
// он поддерживает, и может реализовать дополнительные возможности:
//   - GraphAugmenter — добавляет задачи в граф run job stage
//   - CleanupRewriter — переписывает контекст очистки при отмене
//
// Registry неизменяем после создания и безопасен для чтения из
// нескольких горутин.
package decorator
