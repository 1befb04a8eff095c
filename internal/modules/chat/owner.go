package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

// Owner scopes store operations to one user and enforces thread ownership.
type Owner struct {
	store *Store
	user  *types.User
}

func (s *Store) ForUser(user *types.User) *Owner {
	return &Owner{store: s, user: user}
}

func (o *Owner) User() *types.User { return o.user }

type Message struct {
	ThreadID *uuid.UUID
	Previous *types.Chat
	Content  string
	Type     types.ChatType
	Cost     int
}

func (o *Owner) CreateThread(ctx context.Context, title string) (*types.Thread, error) {
	return o.store.CreateThread(ctx, o.user.ID, title)
}

// Thread loads a thread the user owns.
func (o *Owner) Thread(ctx context.Context, threadID uuid.UUID) (*types.Thread, error) {
	t, err := o.store.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if t.UserID != o.user.ID {
		return nil, ErrThreadNotOwned
	}
	return t, nil
}

// Chat loads a chat in one of the user's threads.
func (o *Owner) Chat(ctx context.Context, chatID uuid.UUID) (*types.Chat, error) {
	c, err := o.store.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if _, err := o.Thread(ctx, c.ThreadID); err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return c, nil
}

// resolveThread is the thread a caller-supplied id names. Unknown ids are
// ErrInvalidThread rather than a not-found.
func (o *Owner) resolveThread(ctx context.Context, threadID uuid.UUID) (*types.Thread, error) {
	t, err := o.Thread(ctx, threadID)
	if errors.Is(err, ErrThreadNotFound) {
		return nil, ErrInvalidThread
	}
	return t, err
}

// AddMessage adds a chat to the named thread, or to the thread of the
// previous chat when no thread is named.
func (o *Owner) AddMessage(ctx context.Context, msg Message) (*types.Chat, error) {
	var threadID uuid.UUID
	switch {
	case msg.ThreadID != nil:
		threadID = *msg.ThreadID
	case msg.Previous != nil:
		threadID = msg.Previous.ThreadID
	default:
		return nil, ErrMissingThreadOrPrevious
	}
	thread, err := o.resolveThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return o.store.AddChat(ctx, thread, NewChat{
		Content:  msg.Content,
		Type:     msg.Type,
		Cost:     msg.Cost,
		Previous: msg.Previous,
	})
}

func (o *Owner) AddQuery(ctx context.Context, msg Message) (*types.Chat, error) {
	msg.Type = types.ChatTypeQuery
	return o.AddMessage(ctx, msg)
}

func (o *Owner) AddResponse(ctx context.Context, msg Message) (*types.Chat, error) {
	msg.Type = types.ChatTypeResponse
	return o.AddMessage(ctx, msg)
}

func (o *Owner) ClearChats(ctx context.Context, threadID uuid.UUID) (int, error) {
	thread, err := o.resolveThread(ctx, threadID)
	if err != nil {
		return 0, err
	}
	return o.store.Clear(ctx, thread)
}

// ActiveThreads lists the user's open threads, oldest first.
func (o *Owner) ActiveThreads(ctx context.Context) ([]*types.Thread, error) {
	return o.store.Threads(ctx, o.user.ID, true)
}

func (o *Owner) TotalChatCost(ctx context.Context) (int, error) {
	return o.store.TotalCost(ctx, o.user.ID)
}
