package tasks

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type temporalQueue struct {
	client    temporalsdkclient.Client
	taskQueue string
	log       *logger.Logger
}

func NewTemporalQueue(client temporalsdkclient.Client, taskQueue string, baseLog *logger.Logger) Queue {
	return &temporalQueue{client: client, taskQueue: taskQueue, log: baseLog.With("component", "TemporalQueue")}
}

func (q *temporalQueue) SendQuery(ctx context.Context, args chat.SendQueryArgs) (Handle, error) {
	run, err := q.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        workflowID(args),
		TaskQueue: q.taskQueue,
	}, WorkflowSendQuery, args)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", WorkflowSendQuery, err)
	}
	q.log.Debug("Send query dispatched", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return q.Handle(run.GetID()), nil
}

func (q *temporalQueue) Handle(id string) Handle {
	return &temporalHandle{client: q.client, id: id}
}

type temporalHandle struct {
	client temporalsdkclient.Client
	id     string
}

func (h *temporalHandle) ID() string { return h.id }

// IsComplete treats any terminal workflow status as complete. A workflow the
// server no longer knows about finished long enough ago to be purged.
func (h *temporalHandle) IsComplete(ctx context.Context) (bool, error) {
	resp, err := h.client.DescribeWorkflowExecution(ctx, h.id, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return true, nil
		}
		return false, fmt.Errorf("describe %s: %w", h.id, err)
	}
	status := resp.GetWorkflowExecutionInfo().GetStatus()
	return status != enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING &&
		status != enumspb.WORKFLOW_EXECUTION_STATUS_UNSPECIFIED, nil
}
