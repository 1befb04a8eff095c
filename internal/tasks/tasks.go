package tasks

import (
	"context"

	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
)

// Handle tracks one dispatched task.
type Handle interface {
	ID() string
	IsComplete(ctx context.Context) (bool, error)
}

// Queue dispatches generation work off the request path.
type Queue interface {
	SendQuery(ctx context.Context, args chat.SendQueryArgs) (Handle, error)
	Handle(id string) Handle
}

// QuerySender runs one send-query task to completion.
type QuerySender interface {
	SendQuery(ctx context.Context, args chat.SendQueryArgs) error
}

// Checker adapts a Queue to the stream reader's completion check.
func Checker(q Queue) stream.TaskChecker { return &checker{q: q} }

type checker struct{ q Queue }

func (c *checker) IsComplete(ctx context.Context, id string) (bool, error) {
	return c.q.Handle(id).IsComplete(ctx)
}

func workflowID(args chat.SendQueryArgs) string {
	return "send_query:" + args.ResponseID.String()
}
