package domain

import (
	"fmt"
	"maps"
	"strings"
)

// StageContext — изменяемый контекст stage: входная конфигурация
// и накопленные результаты задач.
//
// Схема открытая (ключи зависят от pipeline и провайдера), поэтому
// хранилище остаётся map, а известные ключи читаются через методы ниже.
type StageContext map[string]any

// NewStageContext создаёт контекст из map. nil превращается в пустой контекст.
func NewStageContext(m map[string]any) StageContext {
	if m == nil {
		return make(StageContext)
	}
	return StageContext(m)
}

// Has проверяет наличие ключа (значение может быть nil).
func (c StageContext) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Get возвращает значение по ключу.
func (c StageContext) Get(key string) any {
	return c[key]
}

// Set записывает значение.
func (c StageContext) Set(key string, value any) {
	c[key] = value
}

// Delete удаляет ключ.
func (c StageContext) Delete(key string) {
	delete(c, key)
}

// Merge копирует все пары из other поверх текущих значений.
func (c StageContext) Merge(other map[string]any) {
	maps.Copy(c, other)
}

// Clone возвращает поверхностную копию контекста.
func (c StageContext) Clone() StageContext {
	if c == nil {
		return make(StageContext)
	}
	return maps.Clone(c)
}

// String возвращает строковое значение ключа.
// Нестроковые значения приводятся через fmt, отсутствующий ключ или nil — def.
func (c StageContext) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool возвращает булево значение ключа.
// Понимает bool и строки "true"/"false" в любом регистре.
func (c StageContext) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return def
}

// Map возвращает вложенный map или nil.
func (c StageContext) Map(key string) map[string]any {
	if m, ok := c[key].(map[string]any); ok {
		return m
	}
	if m, ok := c[key].(StageContext); ok {
		return m
	}
	return nil
}

// List возвращает вложенный список или nil.
func (c StageContext) List(key string) []any {
	switch v := c[key].(type) {
	case []any:
		return v
	case []map[string]any:
		result := make([]any, len(v))
		for i := range v {
			result[i] = v[i]
		}
		return result
	}
	return nil
}

// WaitForCompletion — true, если значение waitForCompletion не равно "false".
// Отсутствие ключа означает true.
func (c StageContext) WaitForCompletion() bool {
	return !strings.EqualFold(c.String(KeyWaitForCompletion, "true"), "false")
}

// HasExpectedArtifacts — задан ли ключ expectedArtifacts.
func (c StageContext) HasExpectedArtifacts() bool {
	return c.Has(KeyExpectedArtifacts)
}

// ConsumesArtifactSource — равен ли consumeArtifactSource значению "artifact" (без учёта регистра).
func (c StageContext) ConsumesArtifactSource() bool {
	return strings.EqualFold(c.String(KeyConsumeArtifactSource, ""), "artifact")
}

// CloudProvider возвращает дискриминатор провайдера.
func (c StageContext) CloudProvider() string {
	return c.String(KeyCloudProvider, "")
}

// NoOutput — true только для точного значения "true".
func (c StageContext) NoOutput() bool {
	return c.String(KeyNoOutput, "false") == "true"
}

// HasManifestArtifact — привязан ли manifest artifact.
func (c StageContext) HasManifestArtifact() bool {
	return c.Has(KeyManifestArtifact)
}

// IsManifestBased — job задан манифестом (inline или из artifact).
func (c StageContext) IsManifestBased() bool {
	return c.Has(KeyManifest) || c.Has(KeySource)
}

// HasJobStatus — содержит ли контекст не-nil jobStatus.
func (c StageContext) HasJobStatus() bool {
	return c[KeyJobStatus] != nil
}

// SkipExpressionEvaluation — включён ли флаг skipExpressionEvaluation.
func (c StageContext) SkipExpressionEvaluation() bool {
	return c.Bool(KeySkipExpressionEvaluation, false)
}

// KatoTasks возвращает список записей kato.tasks.
// Элементы, которые не являются map, пропускаются.
func (c StageContext) KatoTasks() []map[string]any {
	raw := c.List(KeyKatoTasks)
	tasks := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			tasks = append(tasks, m)
		}
	}
	return tasks
}
