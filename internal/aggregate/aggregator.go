package aggregate

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

// Продвигаемые ключи результатов.
const (
	KeyManifests                = "manifests"
	KeyManifestNamesByNamespace = "manifestNamesByNamespace"
	KeyBoundArtifacts           = "boundArtifacts"
	KeyCreatedArtifacts         = "createdArtifacts"
)

// Record — результат одной задачи (resultObjects[i]).
type Record map[string]any

// Mode — как выбирать значение, если ключ есть в нескольких записях.
type Mode string

const (
	// FirstMatch — первое не-nil значение в порядке завершения.
	FirstMatch Mode = "first"

	// LastMatch — последнее (самое свежее) не-nil значение.
	LastMatch Mode = "last"
)

// ParseMode разбирает режим. Пустая строка — FirstMatch.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FirstMatch:
		return FirstMatch, nil
	case LastMatch:
		return LastMatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Config — настройки Aggregator.
type Config struct {
	// ExcludeKeys — ключи, которые не попадают в Outputs.
	// Можно указывать как "outputs.manifests", так и "manifests".
	ExcludeKeys []string

	// Mode — режим выбора значения (по умолчанию FirstMatch).
	Mode Mode

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Result — итог агрегации.
type Result struct {
	// Context — все продвинутые ключи; мёржится в контекст stage.
	Context map[string]any

	// Outputs — Context без исключённых ключей.
	Outputs map[string]any
}

// Aggregator сводит результаты задач. Не хранит состояния между вызовами.
type Aggregator struct {
	exclude []string
	mode    Mode
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// New создаёт Aggregator.
func New(cfg Config) *Aggregator {
	mode := cfg.Mode
	if mode == "" {
		mode = FirstMatch
	}
	return &Aggregator{
		exclude: slices.Clone(cfg.ExcludeKeys),
		mode:    mode,
		logger:  telemetry.OrDefault(cfg.Logger),
		metrics: cfg.Metrics,
	}
}

// ExcludeKeys возвращает настроенный список исключений.
func (a *Aggregator) ExcludeKeys() []string {
	return slices.Clone(a.exclude)
}

// Aggregate сводит records в Result.
//
// manifests и manifestNamesByNamespace продвигаются как есть,
// boundArtifacts и createdArtifacts конвертируются в артефакты,
// createdArtifacts дополнительно кладётся под ключом "artifacts".
// Ошибка конвертации удаляет только этот ключ.
func (a *Aggregator) Aggregate(records []Record) Result {
	promoted := make(map[string]any)

	a.promote(promoted, records, KeyManifests, domain.OutputKey(KeyManifests))
	a.promote(promoted, records, KeyManifestNamesByNamespace, domain.OutputKey(KeyManifestNamesByNamespace))

	a.promote(promoted, records, KeyBoundArtifacts, domain.OutputKey(KeyBoundArtifacts))
	a.convertArtifacts(promoted, domain.OutputKey(KeyBoundArtifacts))

	a.promote(promoted, records, KeyCreatedArtifacts, domain.OutputKey(KeyCreatedArtifacts))
	a.convertArtifacts(promoted, domain.OutputKey(KeyCreatedArtifacts))

	a.promote(promoted, records, KeyCreatedArtifacts, domain.KeyArtifacts)
	a.convertArtifacts(promoted, domain.KeyArtifacts)

	outputs := a.filter(promoted)
	a.logger.Debug("outputs aggregated",
		"records", len(records),
		"context_keys", len(promoted),
		"output_keys", len(outputs),
	)

	return Result{Context: promoted, Outputs: outputs}
}

// promote кладёт значение key под targetKey согласно режиму.
func (a *Aggregator) promote(out map[string]any, records []Record, key, targetKey string) {
	var (
		value any
		found bool
	)
	for _, r := range records {
		v := r[key]
		if v == nil {
			continue
		}
		value, found = v, true
		if a.mode == FirstMatch {
			break
		}
	}
	if found {
		out[targetKey] = value
	}
}

func (a *Aggregator) convertArtifacts(out map[string]any, key string) {
	raw, ok := out[key]
	if !ok {
		return
	}
	artifacts, err := domain.DecodeArtifacts(raw)
	if err != nil {
		a.logger.Warn("failed to convert promoted value, dropping key",
			"key", key,
			"error", err,
		)
		a.metrics.ObserveConversionFailure(key)
		delete(out, key)
		return
	}
	out[key] = artifacts
}

// filter возвращает копию promoted без исключённых ключей.
func (a *Aggregator) filter(promoted map[string]any) map[string]any {
	outputs := make(map[string]any, len(promoted))
	for k, v := range promoted {
		if a.excluded(k) {
			continue
		}
		outputs[k] = v
	}
	return outputs
}

func (a *Aggregator) excluded(key string) bool {
	bare := strings.TrimPrefix(key, domain.OutputsPrefix)
	for _, e := range a.exclude {
		if e == key || (bare != key && e == bare) {
			return true
		}
	}
	return false
}

// FlattenKatoTasks собирает resultObjects всех kato.tasks в порядке
// следования. Элементы, не являющиеся map, пропускаются.
func FlattenKatoTasks(ctx domain.StageContext) []Record {
	records := make([]Record, 0)
	for _, task := range ctx.KatoTasks() {
		var items []any
		switch v := task[domain.KeyResultObjects].(type) {
		case []any:
			items = v
		case []map[string]any:
			for _, m := range v {
				items = append(items, m)
			}
		}
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				records = append(records, Record(m))
			}
		}
	}
	return records
}
