package providers

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
)

func TestDefault_Resolve(t *testing.T) {
	reg := Default(nil)

	tests := []struct {
		provider string
		found    bool
	}{
		{ProviderKubernetes, true},
		{ProviderTitus, true},
		{"aws", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			_, ok := reg.Resolve(tt.provider)
			if ok != tt.found {
				t.Errorf("Resolve(%q) = %v, want %v", tt.provider, ok, tt.found)
			}
		})
	}
}

func TestKubernetes_AugmentGraph(t *testing.T) {
	k := NewKubernetes(nil)

	t.Run("manifest based", func(t *testing.T) {
		stage := domain.NewStage(uuid.New(), "runJob", map[string]any{
			"cloudProvider": ProviderKubernetes,
			"manifest":      map[string]any{"kind": "Job"},
		})
		b := engine.NewTaskGraphBuilder(engine.GraphFull)
		k.AugmentGraph(stage, b)
		if !b.Has(TaskPromoteOutputs) {
			t.Error("promoteOutputs should be added")
		}
	})

	t.Run("no manifest", func(t *testing.T) {
		stage := domain.NewStage(uuid.New(), "runJob", map[string]any{
			"cloudProvider": ProviderKubernetes,
		})
		b := engine.NewTaskGraphBuilder(engine.GraphFull)
		k.AugmentGraph(stage, b)
		if b.Has(TaskPromoteOutputs) {
			t.Error("promoteOutputs should not be added")
		}
	})
}

func TestRewriteCleanupContext(t *testing.T) {
	job := &domain.RunJobContext{
		JobStatus: &domain.JobStatus{ID: "titus-42", Name: "pi", Location: "default"},
	}

	t.Run("kubernetes", func(t *testing.T) {
		cleanup := map[string]any{}
		if err := NewKubernetes(nil).RewriteCleanupContext(job, cleanup); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]any{
			domain.CleanupKeyManifestName: "job pi",
			domain.CleanupKeyLocation:     "default",
		}
		if diff := cmp.Diff(want, cleanup); diff != "" {
			t.Errorf("cleanup mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("titus", func(t *testing.T) {
		cleanup := map[string]any{}
		if err := NewTitus().RewriteCleanupContext(job, cleanup); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cleanup[domain.CleanupKeyJobID] != "titus-42" {
			t.Errorf("expected jobId titus-42, got %v", cleanup[domain.CleanupKeyJobID])
		}
	})
}

func TestRewriteCleanupContext_IncompleteStatus(t *testing.T) {
	tests := []struct {
		name string
		job  *domain.RunJobContext
	}{
		{"no status", &domain.RunJobContext{}},
		{"empty status", &domain.RunJobContext{JobStatus: &domain.JobStatus{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewKubernetes(nil).RewriteCleanupContext(tt.job, map[string]any{}); !errors.Is(err, ErrIncompleteJobStatus) {
				t.Errorf("kubernetes: expected ErrIncompleteJobStatus, got %v", err)
			}
			if err := NewTitus().RewriteCleanupContext(tt.job, map[string]any{}); !errors.Is(err, ErrIncompleteJobStatus) {
				t.Errorf("titus: expected ErrIncompleteJobStatus, got %v", err)
			}
		})
	}
}
