package app

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shaiso/stagegraph/internal/aggregate"
	"github.com/shaiso/stagegraph/internal/config"
	"github.com/shaiso/stagegraph/internal/providers"
	"github.com/shaiso/stagegraph/internal/stages"
)

func TestBuild_Default(t *testing.T) {
	comp, err := Build(config.Default(), Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{stages.TypeEcho, stages.TypeRunJob}, comp.Stages.Types()); diff != "" {
		t.Errorf("stage types mismatch (-want +got):\n%s", diff)
	}
	if _, ok := comp.Decorators.Resolve(providers.ProviderKubernetes); !ok {
		t.Error("kubernetes decorator should be registered")
	}
	if comp.Lifecycle == nil || comp.Aggregator == nil {
		t.Error("lifecycle and aggregator should be built")
	}
}

func TestBuild_Aliases(t *testing.T) {
	cfg := config.Default()
	cfg.RunJob.Aliases = []string{"runJobLegacy"}

	comp, err := Build(cfg, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, err := comp.Stages.Get("runJobLegacy")
	if err != nil {
		t.Fatalf("alias should resolve: %v", err)
	}
	if def.Type() != stages.TypeRunJob {
		t.Errorf("expected %s, got %s", stages.TypeRunJob, def.Type())
	}
}

func TestBuild_ExcludeKeys(t *testing.T) {
	cfg := config.Default()
	cfg.PromoteOutputs.ExcludeKeysFromOutputs = []string{"manifests"}

	comp, err := Build(cfg, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"manifests"}, comp.Aggregator.ExcludeKeys()); diff != "" {
		t.Errorf("exclude keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_BadMode(t *testing.T) {
	cfg := config.Default()
	cfg.PromoteOutputs.Mode = "random"

	_, err := Build(cfg, Deps{})
	if !errors.Is(err, aggregate.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}
