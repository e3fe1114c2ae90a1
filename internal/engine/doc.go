// Package engine содержит ядро композиции stage.
//
// Включает:
//   - task_graph.go  — TaskGraph и TaskGraphBuilder (задачи одного stage)
//   - stage_graph.go — граф sub-stages фазы (BEFORE/AFTER/FAILURE)
//   - definition.go  — StageDefinition, Compose, планирование фаз
//   - template.go    — вычисление выражений ({{ .Context.x }}) в контексте stage
//   - parser.go      — парсинг StageSpec из JSON
//
// Engine не выполняет задачи и не запускает горутины: он строит
// графы, а внешний исполнитель решает, что и где запускать. Узлы без
// ребра между собой могут выполняться параллельно.
package engine
