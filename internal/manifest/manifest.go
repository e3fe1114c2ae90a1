package manifest

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/shaiso/stagegraph/internal/domain"
)

// AnnotationLogs — аннотация с шаблоном ссылки на логи job.
const AnnotationLogs = "job.spinnaker.io/logs"

// ErrNotManifest — элемент списка не является объектом манифеста.
var ErrNotManifest = errors.New("value is not a manifest object")

// DecodeList превращает значение из контекста в список манифестов.
// nil — пустой список.
func DecodeList(raw any) ([]*unstructured.Unstructured, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return []*unstructured.Unstructured{}, nil
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotManifest, raw)
	}

	manifests := make([]*unstructured.Unstructured, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: index %d is %T", ErrNotManifest, i, item)
		}
		manifests = append(manifests, &unstructured.Unstructured{Object: obj})
	}
	return manifests, nil
}

// Logs возвращает значение аннотации логов манифеста.
func Logs(m *unstructured.Unstructured) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.GetAnnotations()[AnnotationLogs]
	return v, ok
}

// ExecutionLogs строит {"execution": {"logs": <шаблон>}} из первого
// манифеста outputs.manifests.
//
// Работает только при наличии manifestArtifact. Пустой список или
// отсутствие аннотации дают пустой map без ошибки.
func ExecutionLogs(ctx domain.StageContext) (map[string]any, error) {
	result := make(map[string]any)
	if !ctx.HasManifestArtifact() {
		return result, nil
	}

	manifests, err := DecodeList(ctx.Get(domain.KeyOutputsManifests))
	if err != nil {
		return result, fmt.Errorf("decode %s: %w", domain.KeyOutputsManifests, err)
	}
	if len(manifests) == 0 {
		return result, nil
	}

	logs, ok := Logs(manifests[0])
	if !ok {
		return result, nil
	}
	result[domain.KeyExecution] = map[string]any{domain.KeyLogs: logs}
	return result, nil
}
