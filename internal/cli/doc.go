// Package cli реализует инструмент командной строки stagegraph.
//
// # Обзор
//
// Большинство команд работают offline: читают stage или результаты
// задач из YAML/JSON файла и показывают, что сделает ядро. Группа
// event публикует события stage в RabbitMQ для orchestrator.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода. Три режима (флаг --output):
//   - table — text/tabwriter, по умолчанию
//   - json
//   - yaml (sigs.k8s.io/yaml)
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
//
// ## Commands
//
//   - graph -f stage.yaml      — граф задач и план sub-stages
//   - aggregate -f results.yaml — свод результатов (--exclude, --mode)
//   - restart -f stage.yaml    — контекст после подготовки к рестарту
//   - cancel -f stage.yaml     — dry-run отмены, контекст очистки
//   - stages                   — зарегистрированные типы stage
//   - event cancel|restart|complete STAGE_ID
//
// Команды создаются фабриками (NewGraphCmd и т.д.), которые принимают
// EnvFunc и outputFn — замыкания, вызываемые после парсинга флагов.
package cli
