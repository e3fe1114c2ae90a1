package cli

import (
	"fmt"
	"io"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/shaiso/stagegraph/internal/aggregate"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

// readFile читает файл; "-" — stdin.
func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ParseStageFile разбирает stage из YAML или JSON.
func ParseStageFile(data []byte) (*engine.ParsedStage, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	return engine.ParseStage(jsonData)
}

// ParseRecords разбирает результаты задач.
//
// Файл — либо список records, либо контекст stage с kato.tasks;
// во втором случае records собираются из resultObjects.
func ParseRecords(data []byte) ([]aggregate.Record, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	switch v := doc.(type) {
	case []any:
		records := make([]aggregate.Record, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: record %d is not a map", ErrInvalidFixture, i)
			}
			records = append(records, aggregate.Record(m))
		}
		return records, nil
	case map[string]any:
		return aggregate.FlattenKatoTasks(domain.NewStageContext(v)), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: expected list or map, got %T", ErrInvalidFixture, doc)
	}
}
