package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/stagegraph/internal/domain"
	"github.com/shaiso/stagegraph/internal/mq"
)

// NewEventCmd создаёт группу команд, публикующих события stage
// для orchestrator.
func NewEventCmd(publisherFn PublisherFunc, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Publish stage lifecycle events",
	}

	cmd.AddCommand(
		newEventCmd("cancel", "Request stage cancellation", publisherFn, outputFn,
			func(ctx context.Context, p EventPublisher, payload mq.StageEventPayload) error {
				return p.PublishStageCancel(ctx, payload)
			}),
		newEventCmd("restart", "Request stage restart", publisherFn, outputFn,
			func(ctx context.Context, p EventPublisher, payload mq.StageEventPayload) error {
				return p.PublishStageRestart(ctx, payload)
			}),
		newEventCmd("complete", "Report that stage tasks have finished", publisherFn, outputFn,
			func(ctx context.Context, p EventPublisher, payload mq.StageEventPayload) error {
				return p.PublishStageCompleted(ctx, payload)
			}),
	)

	return cmd
}

type publishFunc func(ctx context.Context, p EventPublisher, payload mq.StageEventPayload) error

func newEventCmd(name, short string, publisherFn PublisherFunc, outputFn func() *Output, publish publishFunc) *cobra.Command {
	var executionID string
	var status string

	cmd := &cobra.Command{
		Use:   name + " STAGE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			stageID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid stage id %q: %w", args[0], err)
			}
			payload := mq.StageEventPayload{StageID: stageID, Status: status}
			if executionID != "" {
				if payload.ExecutionID, err = uuid.Parse(executionID); err != nil {
					return fmt.Errorf("invalid execution id %q: %w", executionID, err)
				}
			}
			if status != "" && !domain.ExecutionStatus(status).IsTerminal() {
				return fmt.Errorf("status %q is not a final status", status)
			}

			publisher, closeFn, err := publisherFn(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := publish(cmd.Context(), publisher, payload); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event %s published for stage %s", name, stageID))
			return nil
		},
	}

	cmd.Flags().StringVar(&executionID, "execution", "", "Execution ID")
	if name == "complete" {
		cmd.Flags().StringVar(&status, "status", string(domain.StatusSucceeded), "Final stage status")
	}

	return cmd
}
