package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/telemetry"
)

func TestAggregate_FirstMatch(t *testing.T) {
	a := New(Config{})

	result := a.Aggregate([]Record{
		{},
		{"manifests": []any{"A"}},
		{"manifests": []any{"B"}},
	})

	if diff := cmp.Diff([]any{"A"}, result.Context["outputs.manifests"]); diff != "" {
		t.Errorf("first value should win (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(result.Context, result.Outputs); diff != "" {
		t.Errorf("outputs should equal context without exclusions (-ctx +out):\n%s", diff)
	}
}

func TestAggregate_LastMatch(t *testing.T) {
	a := New(Config{Mode: LastMatch})

	result := a.Aggregate([]Record{
		{"manifests": []any{"A"}},
		{"manifests": nil},
		{"manifests": []any{"B"}},
		{},
	})

	if diff := cmp.Diff([]any{"B"}, result.Context["outputs.manifests"]); diff != "" {
		t.Errorf("last value should win (-want +got):\n%s", diff)
	}
}

func TestAggregate_ExcludeOnlyOutputs(t *testing.T) {
	a := New(Config{ExcludeKeys: []string{"outputs.manifests", "manifestNamesByNamespace"}})

	result := a.Aggregate([]Record{{
		"manifests":                []any{"A"},
		"manifestNamesByNamespace": map[string]any{"default": []any{"job pi"}},
	}})

	if _, ok := result.Context["outputs.manifests"]; !ok {
		t.Error("context should keep outputs.manifests")
	}
	if _, ok := result.Context["outputs.manifestNamesByNamespace"]; !ok {
		t.Error("context should keep outputs.manifestNamesByNamespace")
	}
	if len(result.Outputs) != 0 {
		t.Errorf("outputs should be empty, got %v", result.Outputs)
	}
}

func TestAggregate_Artifacts(t *testing.T) {
	a := New(Config{})

	created := []any{map[string]any{"type": "kubernetes/job", "name": "pi", "reference": "pi-1"}}
	result := a.Aggregate([]Record{
		{"boundArtifacts": []any{map[string]any{"type": "docker/image", "name": "busybox"}}},
		{"createdArtifacts": created},
	})

	wantCreated := []domain.Artifact{{Type: "kubernetes/job", Name: "pi", Reference: "pi-1"}}
	if diff := cmp.Diff(wantCreated, result.Context["outputs.createdArtifacts"]); diff != "" {
		t.Errorf("createdArtifacts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantCreated, result.Context["artifacts"]); diff != "" {
		t.Errorf("artifacts alias mismatch (-want +got):\n%s", diff)
	}

	wantBound := []domain.Artifact{{Type: "docker/image", Name: "busybox"}}
	if diff := cmp.Diff(wantBound, result.Outputs["outputs.boundArtifacts"]); diff != "" {
		t.Errorf("boundArtifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_ConversionFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	a := New(Config{Metrics: metrics})

	result := a.Aggregate([]Record{{
		"manifests":      []any{"A"},
		"boundArtifacts": "not a list",
	}})

	if _, ok := result.Context["outputs.boundArtifacts"]; ok {
		t.Error("unconvertible key should be dropped")
	}
	if _, ok := result.Context["outputs.manifests"]; !ok {
		t.Error("other keys should survive a conversion failure")
	}

	failures, err := testutil.GatherAndCount(reg, "stagegraph_output_conversion_failures_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if failures != 1 {
		t.Errorf("expected 1 conversion failure series, got %d", failures)
	}
}

func TestAggregate_Empty(t *testing.T) {
	a := New(Config{ExcludeKeys: []string{"manifests"}})

	for _, records := range [][]Record{nil, {}, {{}, {"other": 1}}} {
		result := a.Aggregate(records)
		if len(result.Context) != 0 || len(result.Outputs) != 0 {
			t.Errorf("expected empty result for %v, got %+v", records, result)
		}
		if result.Context == nil || result.Outputs == nil {
			t.Error("result maps should not be nil")
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", FirstMatch, false},
		{"first", FirstMatch, false},
		{"LAST", LastMatch, false},
		{"newest", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseMode(%q): expected ErrUnknownMode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFlattenKatoTasks(t *testing.T) {
	ctx := domain.NewStageContext(map[string]any{
		"kato.tasks": []any{
			map[string]any{"resultObjects": []any{
				map[string]any{"manifests": []any{"A"}},
				"garbage",
			}},
			map[string]any{"id": "no results"},
			map[string]any{"resultObjects": []any{
				map[string]any{"manifests": []any{"B"}},
			}},
		},
	})

	records := FlattenKatoTasks(ctx)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if diff := cmp.Diff([]any{"A"}, records[0]["manifests"]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}
}

func TestPromoteOutputsTask(t *testing.T) {
	task := NewPromoteOutputsTask(New(Config{ExcludeKeys: []string{"artifacts"}}))
	stage := domain.NewStage(uuid.New(), "runJob", map[string]any{
		"kato.tasks": []any{
			map[string]any{"resultObjects": []any{
				map[string]any{"createdArtifacts": []any{map[string]any{"type": "kubernetes/job"}}},
			}},
		},
	})

	result, err := task.Execute(context.Background(), stage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", result.Status)
	}
	if _, ok := result.Context["artifacts"]; !ok {
		t.Error("context should contain artifacts")
	}
	if _, ok := result.Outputs["artifacts"]; ok {
		t.Error("artifacts should be excluded from outputs")
	}
	if _, ok := result.Outputs["outputs.createdArtifacts"]; !ok {
		t.Error("outputs should contain outputs.createdArtifacts")
	}
}
