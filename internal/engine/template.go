package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/shaiso/stagegraph/internal/domain"
)

// ExpressionContext — данные, доступные выражениям в контексте stage.
//
//   - {{ .Context.account }}
//   - {{ .Stage.RefID }}
//   - {{ .Execution.ID }}
//   - {{ .Env.VAR_NAME }}
type ExpressionContext struct {
	// Context — контекст stage до вычисления.
	Context map[string]any

	// Stage — метаданные stage.
	Stage StageRef

	// Execution — метаданные выполнения pipeline.
	Execution ExecutionRef

	// Env — переменные окружения.
	Env map[string]string
}

// StageRef — метаданные stage для выражений.
type StageRef struct {
	ID    string
	RefID string
	Type  string
	Name  string
}

// ExecutionRef — метаданные выполнения для выражений.
type ExecutionRef struct {
	ID string
}

// NewExpressionContext создаёт контекст выражений для stage.
func NewExpressionContext(stage *domain.Stage) *ExpressionContext {
	return &ExpressionContext{
		Context: stage.Context.Clone(),
		Stage: StageRef{
			ID:    stage.ID.String(),
			RefID: stage.RefID,
			Type:  stage.Type,
			Name:  stage.Name,
		},
		Execution: ExecutionRef{ID: stage.ExecutionID.String()},
		Env:       make(map[string]string),
	}
}

// SetEnv устанавливает переменную окружения.
func (c *ExpressionContext) SetEnv(key, value string) {
	c.Env[key] = value
}

// templateFuncs — дополнительные функции для выражений.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если второй аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// toBoolean — разбирает строку как bool ("true"/"false", "1"/"0")
	"toBoolean": func(v any) bool {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			return err == nil && parsed
		}
		return false
	},

	// toInt — разбирает строку как целое
	"toInt": func(s string) int {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0
		}
		return n
	},

	// env — значение переменной окружения процесса
	"env": os.Getenv,

	"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

// Render рендерит строковое выражение.
func Render(tmpl string, ctx *ExpressionContext) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice. Выражение, которое целиком
// вычислилось в "true"/"false", становится bool.
func RenderValue(value any, ctx *ExpressionContext) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil

	case string:
		rendered, err := Render(v, ctx)
		if err != nil {
			return nil, err
		}
		if strings.Contains(v, "{{") {
			switch rendered {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return rendered, nil

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = rendered
		}
		return result, nil

	case domain.StageContext:
		return RenderValue(map[string]any(v), ctx)

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// EvaluateContext вычисляет выражения во всём контексте stage.
//
// При skipExpressionEvaluation=true ключ manifests остаётся как есть:
// манифесты часто содержат собственный синтаксис шаблонов. Остальные
// ключи вычисляются всегда. При ошибке контекст stage не меняется.
func EvaluateContext(stage *domain.Stage) error {
	ctx := NewExpressionContext(stage)
	skipManifests := stage.Context.SkipExpressionEvaluation()

	evaluated := make(domain.StageContext, len(stage.Context))
	for key, value := range stage.Context {
		if skipManifests && key == domain.KeyManifests {
			evaluated[key] = value
			continue
		}
		rendered, err := RenderValue(value, ctx)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", key, err)
		}
		evaluated[key] = rendered
	}

	stage.Context = evaluated
	return nil
}
