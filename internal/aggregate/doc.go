// Package aggregate сводит результаты задач stage в один контекст
// и отфильтрованный набор outputs.
//
// Результаты (Record) приходят в порядке завершения задач. Для
// каждого продвигаемого ключа берётся первое не-nil значение
// (FirstMatch) или последнее (LastMatch) и кладётся под ключом
// "outputs.<key>". Артефакты конвертируются в []domain.Artifact.
package aggregate
