package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/app"
	"github.com/shaiso/stagegraph/internal/config"
	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/engine"
	"github.com/shaiso/stagegraph/internal/lifecycle"
	"github.com/shaiso/stagegraph/internal/mq"
	"github.com/shaiso/stagegraph/internal/stages"
)

// --- Helpers ---

func testEnv(cleanup lifecycle.Cleanup) (*app.Components, error) {
	return app.Build(config.Default(), app.Deps{Cleanup: cleanup})
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// run выполняет команду и возвращает stdout и stderr.
func run(t *testing.T, build func(outputFn func() *Output) *cobra.Command, format string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := build(func() *Output { return NewOutputTo(format, &stdout, &stderr) })
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, data)
	}
}

const runJobStage = `
refId: "1"
type: runJob
context:
  cloudProvider: kubernetes
  account: k8s-prod
  manifest:
    kind: Job
  waitForCompletion: "{{ .Context.wait }}"
  wait: "false"
stages:
  - refId: "1a"
    type: wait
    syntheticStageOwner: STAGE_AFTER
  - refId: "1b"
    type: notify
    syntheticStageOwner: STAGE_AFTER
  - refId: "1c"
    type: cleanup
    syntheticStageOwner: STAGE_FAILURE
`

// --- Fixture parsing ---

func TestParseStageFile_YAMLAndJSON(t *testing.T) {
	fromYAML, err := ParseStageFile([]byte("type: runJob\ncontext:\n  cloudProvider: titus\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromJSON, err := ParseStageFile([]byte(`{"type": "runJob", "context": {"cloudProvider": "titus"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fromYAML.Stage.Context.CloudProvider() != "titus" || fromJSON.Stage.Context.CloudProvider() != "titus" {
		t.Error("both formats should parse the context")
	}
}

func TestParseStageFile_Invalid(t *testing.T) {
	_, err := ParseStageFile([]byte("type: [unclosed"))
	if !errors.Is(err, ErrInvalidFixture) {
		t.Errorf("expected ErrInvalidFixture, got %v", err)
	}

	_, err = ParseStageFile([]byte("refId: x\n"))
	if !errors.Is(err, engine.ErrEmptyStageType) {
		t.Errorf("expected ErrEmptyStageType, got %v", err)
	}
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		count int
	}{
		{"list", "- manifests: [a]\n- manifests: [b]\n", 2},
		{"kato tasks", "kato.tasks:\n  - resultObjects:\n      - manifests: [a]\n      - skipped\n", 1},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseRecords([]byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != tt.count {
				t.Errorf("expected %d records, got %d", tt.count, len(records))
			}
		})
	}

	if _, err := ParseRecords([]byte("- 1\n- 2\n")); !errors.Is(err, ErrInvalidFixture) {
		t.Errorf("expected ErrInvalidFixture for scalar records, got %v", err)
	}
}

// --- Commands ---

func TestGraphCmd_JSON(t *testing.T) {
	path := writeFixture(t, "stage.yaml", runJobStage)

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewGraphCmd(testEnv, o)
	}, FormatJSON, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view graphView
	decodeJSON(t, stdout, &view)

	// waitForCompletion вычисляется в "false"
	want := []string{"runJob", "monitorDeploy", "promoteOutputs"}
	if diff := cmp.Diff(want, view.Tasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	if len(view.Phases) != 2 {
		t.Fatalf("expected after and failure phases, got %+v", view.Phases)
	}
	after := view.Phases[0]
	if after.Edges != 1 || len(after.Stages) != 2 {
		t.Errorf("after phase should be a chain of 2, got %+v", after)
	}
	if diff := cmp.Diff([]string{"1a"}, after.Stages[1].DependsOn); diff != "" {
		t.Errorf("dependsOn mismatch (-want +got):\n%s", diff)
	}
	if after.Source != sourceFile {
		t.Errorf("expected file source, got %q", after.Source)
	}
	if view.CanManuallySkip {
		t.Error("runJob cannot be skipped manually")
	}
}

func TestGraphCmd_DefinitionBeforeStages(t *testing.T) {
	reg := stages.NewRegistry()
	reg.MustRegister(stages.NewPluginDefinition("composite", "run", stages.ExternalTask("run"),
		stages.WithAroundStages(func(parent *domain.Stage) []*domain.Stage {
			return []*domain.Stage{
				domain.NewSubStage(parent, "check", domain.PhaseBefore, nil),
				domain.NewSubStage(parent, "lint", domain.PhaseBefore, nil),
			}
		}),
	))
	env := func(lifecycle.Cleanup) (*app.Components, error) {
		return &app.Components{Config: config.Default(), Stages: reg}, nil
	}
	path := writeFixture(t, "stage.yaml", "type: composite\n")

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewGraphCmd(env, o)
	}, FormatJSON, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view graphView
	decodeJSON(t, stdout, &view)

	if len(view.Phases) != 1 {
		t.Fatalf("expected only the definition before phase, got %+v", view.Phases)
	}
	before := view.Phases[0]
	if before.Phase != domain.PhaseBefore || before.Source != sourceDefinition {
		t.Errorf("unexpected phase: %+v", before)
	}
	if len(before.Stages) != 2 || before.Edges != 1 {
		t.Errorf("before phase should be a chain of 2, got %+v", before)
	}
}

func TestGraphCmd_NoEvaluate(t *testing.T) {
	path := writeFixture(t, "stage.yaml", runJobStage)

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewGraphCmd(testEnv, o)
	}, FormatJSON, "-f", path, "--evaluate=false")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view graphView
	decodeJSON(t, stdout, &view)
	if view.Tasks[len(view.Tasks)-1] != "waitOnJobCompletion" {
		t.Errorf("unevaluated expression is not \"false\", wait task expected: %v", view.Tasks)
	}
}

func TestGraphCmd_Table(t *testing.T) {
	path := writeFixture(t, "stage.yaml", runJobStage)

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewGraphCmd(testEnv, o)
	}, FormatTable, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"TASK", "monitorDeploy", "STAGE_AFTER", "STAGE_FAILURE"} {
		if !bytes.Contains([]byte(stdout), []byte(want)) {
			t.Errorf("output should contain %q:\n%s", want, stdout)
		}
	}
}

func TestAggregateCmd(t *testing.T) {
	path := writeFixture(t, "results.yaml", `
- manifests: [first]
  createdArtifacts:
    - type: kubernetes/job
      name: pi
- manifests: [second]
`)

	tests := []struct {
		name          string
		args          []string
		wantManifests []any
		wantInOutputs bool
	}{
		{"first match", nil, []any{"first"}, true},
		{"last match", []string{"--mode", "last"}, []any{"second"}, true},
		{"excluded", []string{"--exclude", "outputs.manifests"}, []any{"first"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-f", path}, tt.args...)
			stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
				return NewAggregateCmd(testEnv, o)
			}, FormatJSON, args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var result struct {
				Context map[string]any `json:"context"`
				Outputs map[string]any `json:"outputs"`
			}
			decodeJSON(t, stdout, &result)

			if diff := cmp.Diff(tt.wantManifests, result.Context["outputs.manifests"]); diff != "" {
				t.Errorf("manifests mismatch (-want +got):\n%s", diff)
			}
			if _, ok := result.Outputs["outputs.manifests"]; ok != tt.wantInOutputs {
				t.Errorf("outputs.manifests in outputs = %v, want %v", ok, tt.wantInOutputs)
			}
			if _, ok := result.Context["artifacts"]; !ok {
				t.Error("createdArtifacts should be aliased to artifacts")
			}
		})
	}
}

func TestRestartCmd(t *testing.T) {
	path := writeFixture(t, "stage.json", `{
		"type": "runJob",
		"context": {
			"jobStatus": {"name": "pi"},
			"completionDetails": {"exitCode": 0},
			"account": "k8s"
		}
	}`)

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewRestartCmd(testEnv, o)
	}, FormatJSON, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ctx map[string]any
	decodeJSON(t, stdout, &ctx)

	if _, ok := ctx["jobStatus"]; ok {
		t.Error("jobStatus should be removed")
	}
	details, ok := ctx["restartDetails"].(map[string]any)
	if !ok {
		t.Fatalf("restartDetails should be set, got %v", ctx)
	}
	if diff := cmp.Diff(map[string]any{"name": "pi"}, details["jobStatus"]); diff != "" {
		t.Errorf("archived jobStatus mismatch (-want +got):\n%s", diff)
	}
	if ctx["account"] != "k8s" {
		t.Error("unrelated keys should stay")
	}
}

func TestCancelCmd(t *testing.T) {
	path := writeFixture(t, "stage.yaml", `
type: runJob
context:
  cloudProvider: kubernetes
  account: k8s
  jobStatus:
    name: pi
    location: batch
`)

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewCancelCmd(testEnv, o)
	}, FormatJSON, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view cancelView
	decodeJSON(t, stdout, &view)

	if !view.Cancellable || !view.Destroyed {
		t.Fatalf("runJob should be cancelled with cleanup, got %+v", view)
	}
	if view.Details["manifestName"] != "job pi" || view.Details["location"] != "batch" {
		t.Errorf("unexpected cleanup details: %v", view.Details)
	}
	if diff := cmp.Diff(view.Details, view.Context); diff != "" {
		t.Errorf("stage context should be replaced by cleanup context (-details +context):\n%s", diff)
	}
}

func TestCancelCmd_NoJobStatus(t *testing.T) {
	path := writeFixture(t, "stage.yaml", "type: runJob\ncontext:\n  account: k8s\n")

	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewCancelCmd(testEnv, o)
	}, FormatJSON, "-f", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view cancelView
	decodeJSON(t, stdout, &view)
	if view.Destroyed || len(view.Details) != 0 {
		t.Errorf("cleanup should not run without jobStatus: %+v", view)
	}
}

func TestStagesCmd(t *testing.T) {
	stdout, _, err := run(t, func(o func() *Output) *cobra.Command {
		return NewStagesCmd(testEnv, o)
	}, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var views []stageTypeView
	decodeJSON(t, stdout, &views)

	want := []stageTypeView{
		{Type: "echo", Cancellable: true, ForceCacheRefresh: true},
		{Type: "runJob", Cancellable: true, ForceCacheRefresh: true},
	}
	if diff := cmp.Diff(want, views); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
}

// --- event ---

type recordingPublisher struct {
	calls []string
	last  mq.StageEventPayload
}

func (p *recordingPublisher) PublishStageCancel(_ context.Context, payload mq.StageEventPayload) error {
	p.calls = append(p.calls, "cancel")
	p.last = payload
	return nil
}

func (p *recordingPublisher) PublishStageRestart(_ context.Context, payload mq.StageEventPayload) error {
	p.calls = append(p.calls, "restart")
	p.last = payload
	return nil
}

func (p *recordingPublisher) PublishStageCompleted(_ context.Context, payload mq.StageEventPayload) error {
	p.calls = append(p.calls, "complete")
	p.last = payload
	return nil
}

func TestEventCmd(t *testing.T) {
	pub := &recordingPublisher{}
	closed := 0
	publisherFn := func(context.Context) (EventPublisher, func() error, error) {
		return pub, func() error { closed++; return nil }, nil
	}
	build := func(o func() *Output) *cobra.Command { return NewEventCmd(publisherFn, o) }

	stageID := uuid.New()
	execID := uuid.New()

	if _, _, err := run(t, build, FormatTable, "cancel", stageID.String(), "--execution", execID.String()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, stderr, err := run(t, build, FormatTable, "complete", stageID.String(), "--status", "TERMINAL"); err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr)
	}

	if diff := cmp.Diff([]string{"cancel", "complete"}, pub.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if pub.last.StageID != stageID || pub.last.Status != "TERMINAL" {
		t.Errorf("unexpected payload: %+v", pub.last)
	}
	if closed != 2 {
		t.Errorf("publisher should be closed after each event, got %d", closed)
	}
}

func TestEventCmd_InvalidArgs(t *testing.T) {
	publisherFn := func(context.Context) (EventPublisher, func() error, error) {
		t.Fatal("publisher should not be opened")
		return nil, nil, nil
	}
	build := func(o func() *Output) *cobra.Command { return NewEventCmd(publisherFn, o) }

	tests := []struct {
		name string
		args []string
	}{
		{"bad stage id", []string{"restart", "nope"}},
		{"bad execution id", []string{"cancel", uuid.NewString(), "--execution", "nope"}},
		{"non-final status", []string{"complete", uuid.NewString(), "--status", "RUNNING"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := run(t, build, FormatTable, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
