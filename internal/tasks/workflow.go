package tasks

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
)

const (
	WorkflowSendQuery = chat.SendQueryTask
	ActivitySendQuery = chat.SendQueryTask + ".activity"
)

// SendQueryWorkflow runs the generation activity once. Retrying would
// append a second copy of the tokens to the response stream.
func SendQueryWorkflow(ctx workflow.Context, args chat.SendQueryArgs) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	return workflow.ExecuteActivity(ctx, ActivitySendQuery, args).Get(ctx, nil)
}

type Activities struct {
	Sender QuerySender
}

func (a *Activities) SendQuery(ctx context.Context, args chat.SendQueryArgs) error {
	return a.Sender.SendQuery(ctx, args)
}
