package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultReadTimeout  = 5 * time.Minute
)

// TaskChecker reports whether the background task behind a stream finished.
// It covers workers that died before marking the status key.
type TaskChecker interface {
	IsComplete(ctx context.Context, taskID string) (bool, error)
}

type TailerConfig struct {
	PollInterval time.Duration
	ReadTimeout  time.Duration
}

type Tailer struct {
	store    Store
	tasks    TaskChecker
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger
}

func NewTailer(store Store, tasks TaskChecker, cfg TailerConfig, baseLog *logger.Logger) *Tailer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Tailer{
		store:    store,
		tasks:    tasks,
		interval: cfg.PollInterval,
		timeout:  cfg.ReadTimeout,
		log:      baseLog.With("component", "StreamTailer"),
	}
}

// Tail emits the tokens of a response chat. When the chat already has
// content, or no stream is live and no task is pending for it, the content
// is emitted once with its whitespace collapsed. Otherwise the stream is
// polled from the start until the task completes, ctx is cancelled or the
// read timeout elapses.
func (t *Tailer) Tail(ctx context.Context, chatID uuid.UUID, content string, emit func(string) error) error {
	live := false
	taskID := ""
	if content == "" {
		ok, err := t.store.Exists(ctx, chatID)
		if err != nil {
			return err
		}
		if taskID, err = t.store.TaskID(ctx, chatID); err != nil {
			return err
		}
		live = ok
		// A dispatched task that has not written its first token yet.
		if !live && taskID != "" {
			done, err := t.finished(ctx, chatID, taskID)
			if err != nil {
				return err
			}
			live = !done
		}
	}
	if !live {
		if words := strings.Fields(content); len(words) > 0 {
			return emit(strings.Join(words, " "))
		}
		return nil
	}

	deadline := time.Now().Add(t.timeout)
	cursor := StartCursor
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		// Status is read before the entries so tokens appended just ahead of
		// completion are still drained on the final pass.
		done, err := t.finished(ctx, chatID, taskID)
		if err != nil {
			return err
		}
		entries, err := t.store.ReadSince(ctx, chatID, cursor)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := emit(e.Token); err != nil {
				return err
			}
			cursor = e.ID
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			t.log.Warn("Stream read timed out", "chat_id", chatID, "timeout", t.timeout.String())
			return fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}
		timer.Reset(t.interval)
	}
}

func (t *Tailer) finished(ctx context.Context, chatID uuid.UUID, taskID string) (bool, error) {
	status, err := t.store.Status(ctx, chatID)
	if err != nil {
		return false, err
	}
	if status == StatusCompleted {
		return true, nil
	}
	if t.tasks == nil || taskID == "" {
		return false, nil
	}
	complete, err := t.tasks.IsComplete(ctx, taskID)
	if err != nil {
		t.log.Warn("Task status lookup failed", "chat_id", chatID, "task_id", taskID, "error", err)
		return false, nil
	}
	return complete, nil
}
