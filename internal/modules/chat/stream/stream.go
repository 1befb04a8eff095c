package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxLen caps retained entries per stream. Older tokens are trimmed, so a
	// reader that falls more than MaxLen entries behind loses the earliest
	// part of the response.
	MaxLen = 1000

	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"

	StartCursor = "0-0"
)

var ErrTimeout = errors.New("stream read timed out")

// Name is the stream key for a response chat.
func Name(chatID uuid.UUID) string {
	return "stream:" + strings.ReplaceAll(chatID.String(), "-", "")
}

func StatusKey(chatID uuid.UUID) string { return Name(chatID) + ":task" }

func TaskIDKey(chatID uuid.UUID) string { return Name(chatID) + ":task_id" }

type Entry struct {
	ID    string
	Token string
}

// Store is the append-only token log plus the task status side keys.
type Store interface {
	Append(ctx context.Context, chatID uuid.UUID, token string) error
	ReadSince(ctx context.Context, chatID uuid.UUID, cursor string) ([]Entry, error)
	SetStatus(ctx context.Context, chatID uuid.UUID, status string) error
	Status(ctx context.Context, chatID uuid.UUID) (string, error)
	SetTaskID(ctx context.Context, chatID uuid.UUID, taskID string) error
	TaskID(ctx context.Context, chatID uuid.UUID) (string, error)
	// Exists reports whether both the stream and its status key are present.
	Exists(ctx context.Context, chatID uuid.UUID) (bool, error)
}
