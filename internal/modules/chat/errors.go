package chat

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
)

var (
	ErrThreadNotFound          = errors.New("thread not found")
	ErrChatNotFound            = errors.New("chat not found")
	ErrInvalidThread           = errors.New("thread_id is invalid")
	ErrThreadNotOwned          = errors.New("thread not owned by user")
	ErrMissingThreadOrPrevious = errors.New("thread_id or previous_chat is required")
	ErrPreviousChatOtherThread = errors.New("previous_chat not in same thread")
	ErrInvalidChatType         = errors.New("chat_type must be QUERY or RESPONSE")
	ErrOrderConflict           = errors.New("another chat was added to this thread concurrently")
	ErrInvalidTransition       = errors.New("filled chat content cannot be cleared")
)

// APIError maps store errors onto their HTTP representation. Errors it does
// not know are returned unchanged.
func APIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrThreadNotFound):
		return apierr.NotFound("thread_not_found", ErrThreadNotFound)
	case errors.Is(err, ErrChatNotFound):
		return apierr.NotFound("chat_not_found", ErrChatNotFound)
	case errors.Is(err, ErrThreadNotOwned):
		return apierr.Forbidden("thread_not_owned", ErrThreadNotOwned)
	case errors.Is(err, ErrInvalidThread):
		return apierr.Unprocessable("invalid_thread", ErrInvalidThread)
	case errors.Is(err, ErrPreviousChatOtherThread):
		return apierr.Unprocessable("previous_chat_other_thread", ErrPreviousChatOtherThread)
	case errors.Is(err, ErrInvalidChatType):
		return apierr.Unprocessable("invalid_chat_type", ErrInvalidChatType)
	case errors.Is(err, ErrInvalidTransition):
		return apierr.Unprocessable("invalid_transition", ErrInvalidTransition)
	case errors.Is(err, ErrMissingThreadOrPrevious):
		return apierr.BadRequest("missing_thread", ErrMissingThreadOrPrevious)
	case errors.Is(err, ErrOrderConflict):
		return apierr.Conflict("chat_order_conflict", ErrOrderConflict)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
