package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type fakeJobPublisher struct {
	payloads []JobDestroyPayload
	err      error
}

func (p *fakeJobPublisher) PublishJobDestroy(_ context.Context, payload JobDestroyPayload) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestJobDestroyer_Destroy(t *testing.T) {
	pub := &fakeJobPublisher{}
	d := NewJobDestroyer(pub)

	stageID, execID := uuid.New(), uuid.New()
	cleanup := map[string]any{"jobId": "titus-1"}

	ctx := WithStageRef(context.Background(), stageID, execID)
	if err := d.Destroy(ctx, cleanup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []JobDestroyPayload{{
		StageID:     stageID,
		ExecutionID: execID,
		Cleanup:     map[string]any{"jobId": "titus-1"},
	}}
	if diff := cmp.Diff(want, pub.payloads); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	// payload не разделяет map с вызывающим
	cleanup["jobId"] = "changed"
	if pub.payloads[0].Cleanup["jobId"] != "titus-1" {
		t.Error("cleanup should be copied")
	}
}

func TestJobDestroyer_NoStageRef(t *testing.T) {
	pub := &fakeJobPublisher{}
	if err := NewJobDestroyer(pub).Destroy(context.Background(), map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.payloads[0].StageID != uuid.Nil {
		t.Errorf("expected nil stage id, got %s", pub.payloads[0].StageID)
	}
}

func TestJobDestroyer_Errors(t *testing.T) {
	t.Run("no publisher", func(t *testing.T) {
		err := NewJobDestroyer(nil).Destroy(context.Background(), nil)
		if !errors.Is(err, ErrNoPublisher) {
			t.Errorf("expected ErrNoPublisher, got %v", err)
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		boom := errors.New("channel closed")
		err := NewJobDestroyer(&fakeJobPublisher{err: boom}).Destroy(context.Background(), nil)
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped publish error, got %v", err)
		}
	})
}

func TestParsePayload(t *testing.T) {
	stageID := uuid.New()
	msg := &Message{
		Type: MessageTypeStageCompleted,
		Payload: map[string]any{
			"stage_id": stageID.String(),
			"status":   "SUCCEEDED",
		},
	}

	got, err := ParsePayload[StageEventPayload](msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StageID != stageID || got.Status != "SUCCEEDED" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestParsePayload_Permanent(t *testing.T) {
	msg := &Message{Payload: map[string]any{"stage_id": "not-a-uuid"}}

	_, err := ParsePayload[StageEventPayload](msg)
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
}

func TestNewMessage(t *testing.T) {
	payload := StageEventPayload{StageID: uuid.New()}
	a := NewMessage(MessageTypeStageReady, payload)
	b := NewMessage(MessageTypeStageReady, payload)

	if a.Type != MessageTypeStageReady {
		t.Errorf("expected %s, got %s", MessageTypeStageReady, a.Type)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Error("messages should get unique ids")
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestConsumer_InvokeRecoversPanic(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueueStagesCancel,
		Handler: func(context.Context, *Delivery) error {
			panic("nil map")
		},
	})

	err := c.invoke(context.Background(), &Delivery{})
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
}
