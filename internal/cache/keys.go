package cache

import "github.com/google/uuid"

func ChatKey(chatID uuid.UUID) string { return "chat:" + chatID.String() }

func ChatsKey(threadID uuid.UUID) string { return "chats:" + threadID.String() }

func ThreadKey(threadID uuid.UUID) string { return "thread:" + threadID.String() }

func ThreadsKey(userID uuid.UUID) string { return "threads:" + userID.String() }
