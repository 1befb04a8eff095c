package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/temporalx"
)

// Worker polls the task queue and runs send-query workflows.
type Worker struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	cfg         temporalx.Config
	sender      QuerySender
	concurrency int
}

func NewWorker(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, sender QuerySender, concurrency int) (*Worker, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if sender == nil {
		return nil, fmt.Errorf("temporal worker missing sender")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{log: log.With("component", "TemporalWorker"), tc: tc, cfg: cfg, sender: sender, concurrency: concurrency}, nil
}

// Run starts the worker, retrying until it polls, and blocks until ctx ends.
func (r *Worker) Run(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			<-ctx.Done()
			w.Stop()
			return nil
		}
		w.Stop()

		var notFound *serviceerror.NamespaceNotFound
		if errors.As(startErr, &notFound) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "error", err)
			}
		}
		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return fmt.Errorf("temporal worker start: %w", startErr)
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)

		t := time.NewTimer(temporalx.Backoff(r.cfg.Backoff, r.cfg.BackoffMax, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Worker) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.concurrency,
	})
	acts := &Activities{Sender: r.sender}
	w.RegisterWorkflowWithOptions(SendQueryWorkflow, workflow.RegisterOptions{Name: WorkflowSendQuery})
	w.RegisterActivityWithOptions(acts.SendQuery, activity.RegisterOptions{Name: ActivitySendQuery})
	return w
}
