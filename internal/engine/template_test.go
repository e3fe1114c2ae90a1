package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
)

func TestRender_Context(t *testing.T) {
	stage := domain.NewStage(uuid.New(), "runJob", map[string]any{
		"account": "prod",
		"count":   3,
		"empty":   "",
	})
	stage.RefID = "7"
	ctx := NewExpressionContext(stage)
	ctx.SetEnv("REGION", "eu-west-1")

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain string", "hello", "hello"},
		{"context value", "{{ .Context.account }}", "prod"},
		{"number", "{{ .Context.count }}", "3"},
		{"stage ref", "stage-{{ .Stage.RefID }}", "stage-7"},
		{"env", "{{ .Env.REGION }}", "eu-west-1"},
		{"upper", "{{ upper .Context.account }}", "PROD"},
		{"default", `{{ default "none" .Context.empty }}`, "none"},
		{"json", "{{ json .Context.account }}", `"prod"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRender_ParseError(t *testing.T) {
	ctx := NewExpressionContext(newParent())

	_, err := Render("{{ .Context.x", ctx)
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

func TestRenderValue_Nested(t *testing.T) {
	stage := domain.NewStage(uuid.New(), "runJob", map[string]any{"flag": "true", "name": "job"})
	ctx := NewExpressionContext(stage)

	got, err := RenderValue(map[string]any{
		"enabled": "{{ .Context.flag }}",
		"items":   []any{"{{ .Context.name }}", 1},
		"literal": "true",
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"enabled": true,
		"items":   []any{"job", 1},
		"literal": "true",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rendered value mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateContext_SkipManifests(t *testing.T) {
	manifests := []any{map[string]any{"metadata": map[string]any{"name": "{{ .Context.jobName }}"}}}
	stage := domain.NewStage(uuid.New(), "deployManifest", map[string]any{
		"jobName":                  "pi",
		"skipExpressionEvaluation": true,
		"manifests":                manifests,
		"label":                    "{{ .Context.jobName }}-label",
	})

	if err := EvaluateContext(stage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(manifests, stage.Context[domain.KeyManifests]); diff != "" {
		t.Errorf("manifests should stay unevaluated (-want +got):\n%s", diff)
	}
	if stage.Context["label"] != "pi-label" {
		t.Errorf("other keys should be evaluated, got %v", stage.Context["label"])
	}
}

func TestEvaluateContext_EvaluatesManifests(t *testing.T) {
	stage := domain.NewStage(uuid.New(), "deployManifest", map[string]any{
		"jobName":   "pi",
		"manifests": []any{"{{ .Context.jobName }}"},
	})

	if err := EvaluateContext(stage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]any{"pi"}, stage.Context[domain.KeyManifests]); diff != "" {
		t.Errorf("manifests should be evaluated (-want +got):\n%s", diff)
	}
}

func TestEvaluateContext_ErrorLeavesContext(t *testing.T) {
	stage := domain.NewStage(uuid.New(), "runJob", map[string]any{
		"broken": "{{ .Context.x",
	})

	if err := EvaluateContext(stage); err == nil {
		t.Fatal("expected error")
	}
	if stage.Context["broken"] != "{{ .Context.x" {
		t.Error("context should not change on error")
	}
}
