package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeysFor(t *testing.T) {
	chatID, prevID, threadID, userID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	full := Target{ChatID: chatID, PreviousChatID: prevID, ThreadID: threadID, UserID: userID}

	cases := []struct {
		name   string
		m      Mutation
		target Target
		want   []string
	}{
		{"create chat", ChatCreated, full, []string{ChatsKey(threadID), ThreadKey(threadID)}},
		{"update chat", ChatUpdated, full, []string{ChatKey(chatID), ChatsKey(threadID)}},
		{"delete chat with predecessor", ChatDeleted, full, []string{
			ChatKey(chatID), ChatsKey(threadID), ThreadKey(threadID), ThreadsKey(userID), ChatKey(prevID),
		}},
		{"delete chain head", ChatDeleted, Target{ChatID: chatID, ThreadID: threadID, UserID: userID}, []string{
			ChatKey(chatID), ChatsKey(threadID), ThreadKey(threadID), ThreadsKey(userID),
		}},
		{"create thread", ThreadCreated, full, []string{ThreadsKey(userID)}},
		{"update thread", ThreadUpdated, full, []string{ThreadKey(threadID), ThreadsKey(userID)}},
		{"delete thread", ThreadDeleted, full, []string{ThreadKey(threadID), ThreadsKey(userID)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KeysFor(tc.m, tc.target))
		})
	}
}

func TestKeyFormats(t *testing.T) {
	id := uuid.MustParse("7f0b8f1e-5c5e-4e8b-9a55-0c1f3a6f2d10")
	assert.Equal(t, "chat:7f0b8f1e-5c5e-4e8b-9a55-0c1f3a6f2d10", ChatKey(id))
	assert.Equal(t, "chats:7f0b8f1e-5c5e-4e8b-9a55-0c1f3a6f2d10", ChatsKey(id))
	assert.Equal(t, "thread:7f0b8f1e-5c5e-4e8b-9a55-0c1f3a6f2d10", ThreadKey(id))
	assert.Equal(t, "threads:7f0b8f1e-5c5e-4e8b-9a55-0c1f3a6f2d10", ThreadsKey(id))
}
