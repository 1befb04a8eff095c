package cache

import "github.com/google/uuid"

type Mutation int

const (
	ChatCreated Mutation = iota
	ChatUpdated
	ChatDeleted
	ThreadCreated
	ThreadUpdated
	ThreadDeleted
)

func (m Mutation) String() string {
	switch m {
	case ChatCreated:
		return "chat_created"
	case ChatUpdated:
		return "chat_updated"
	case ChatDeleted:
		return "chat_deleted"
	case ThreadCreated:
		return "thread_created"
	case ThreadUpdated:
		return "thread_updated"
	case ThreadDeleted:
		return "thread_deleted"
	default:
		return "unknown"
	}
}

// Target identifies the rows touched by a mutation. Zero ids are ignored.
type Target struct {
	ChatID         uuid.UUID
	PreviousChatID uuid.UUID
	ThreadID       uuid.UUID
	UserID         uuid.UUID
}

// KeysFor returns the cached views a committed mutation makes stale.
func KeysFor(m Mutation, t Target) []string {
	var keys []string
	add := func(id uuid.UUID, key func(uuid.UUID) string) {
		if id != uuid.Nil {
			keys = append(keys, key(id))
		}
	}
	switch m {
	case ChatCreated:
		add(t.ThreadID, ChatsKey)
		add(t.ThreadID, ThreadKey)
	case ChatUpdated:
		add(t.ChatID, ChatKey)
		add(t.ThreadID, ChatsKey)
	case ChatDeleted:
		add(t.ChatID, ChatKey)
		add(t.ThreadID, ChatsKey)
		add(t.ThreadID, ThreadKey)
		add(t.UserID, ThreadsKey)
		add(t.PreviousChatID, ChatKey)
	case ThreadCreated:
		add(t.UserID, ThreadsKey)
	case ThreadUpdated, ThreadDeleted:
		add(t.ThreadID, ThreadKey)
		add(t.UserID, ThreadsKey)
	}
	return keys
}
