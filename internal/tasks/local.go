package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// LocalQueue runs tasks on a bounded pool of goroutines in this process.
type LocalQueue struct {
	sender  QuerySender
	log     *logger.Logger
	slots   chan struct{}
	timeout time.Duration

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

func NewLocalQueue(sender QuerySender, workers int, timeout time.Duration, baseLog *logger.Logger) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &LocalQueue{
		sender:  sender,
		log:     baseLog.With("component", "LocalQueue"),
		slots:   make(chan struct{}, workers),
		timeout: timeout,
		running: make(map[string]struct{}),
	}
}

func (q *LocalQueue) SendQuery(_ context.Context, args chat.SendQueryArgs) (Handle, error) {
	id := workflowID(args)

	q.mu.Lock()
	if _, busy := q.running[id]; busy {
		q.mu.Unlock()
		return nil, fmt.Errorf("task %s already running", id)
	}
	q.running[id] = struct{}{}
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer q.finish(id)

		q.slots <- struct{}{}
		defer func() { <-q.slots }()

		// The request that enqueued the task is gone by now.
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		if err := q.sender.SendQuery(ctx, args); err != nil {
			q.log.Error("Send query task failed", "task_id", id, "error", err)
		}
	}()
	return q.Handle(id), nil
}

func (q *LocalQueue) finish(id string) {
	q.mu.Lock()
	delete(q.running, id)
	q.mu.Unlock()
}

func (q *LocalQueue) Handle(id string) Handle { return &localHandle{q: q, id: id} }

// Wait blocks until every dispatched task has returned.
func (q *LocalQueue) Wait() { q.wg.Wait() }

type localHandle struct {
	q  *LocalQueue
	id string
}

func (h *localHandle) ID() string { return h.id }

// IsComplete reports true for ids this process is not running, including
// ones it never saw.
func (h *localHandle) IsComplete(context.Context) (bool, error) {
	h.q.mu.Lock()
	defer h.q.mu.Unlock()
	_, running := h.q.running[h.id]
	return !running, nil
}
