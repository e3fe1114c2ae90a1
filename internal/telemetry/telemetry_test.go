package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shaiso/stagegraph/internal/domain"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env      string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.env)
			if got := LogLevel(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo, "").Info("hello", "stage_id", "s1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("default format should be JSON: %v", err)
	}
	if entry["stage_id"] != "s1" {
		t.Errorf("expected stage_id s1, got %v", entry["stage_id"])
	}

	buf.Reset()
	NewLogger(&buf, slog.LevelInfo, "text").Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug record should be filtered at INFO")
	}

	NewLogger(&buf, slog.LevelInfo, "TEXT").Info("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("expected text record, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("empty context should give the default logger")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("logger from context mismatch")
	}
}

func TestWithStage(t *testing.T) {
	var buf bytes.Buffer
	stage := domain.NewStage(uuid.New(), "runJob", nil)

	WithStage(NewLogger(&buf, slog.LevelInfo, "json"), stage).Info("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["stage_id"] != stage.ID.String() || entry["execution_id"] != stage.ExecutionID.String() {
		t.Errorf("missing stage ids: %v", entry)
	}
	if entry["stage_type"] != "runJob" {
		t.Errorf("expected stage_type runJob, got %v", entry["stage_type"])
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCancel(CancelCleaned)
	m.ObserveCleanupFailure()
	m.ObserveConversionFailure("boundArtifacts")
	m.ObserveTaskGraph(3)
	m.ObserveRestart()
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCancel(CancelCleaned)
	m.ObserveCancel(CancelCleaned)
	m.ObserveCancel(CancelSkipped)
	m.ObserveRestart()

	if got := testutil.ToFloat64(m.cancellations.WithLabelValues(CancelCleaned)); got != 2 {
		t.Errorf("expected 2 cleaned cancellations, got %v", got)
	}
	if got := testutil.ToFloat64(m.cancellations.WithLabelValues(CancelSkipped)); got != 1 {
		t.Errorf("expected 1 skipped cancellation, got %v", got)
	}
	if got := testutil.ToFloat64(m.restarts); got != 1 {
		t.Errorf("expected 1 restart, got %v", got)
	}
}
