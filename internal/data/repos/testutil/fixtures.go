package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		FirstName:   "Ada",
		LastName:    "Cook",
		Username:    username,
		Email:       username + "@example.com",
		Password:    "pw",
		UserType:    types.UserTypeCook,
		MaxChatCost: 1000,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedThread(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Thread {
	tb.Helper()
	t := &types.Thread{ID: uuid.New(), UserID: userID, Title: "Jollof Rice Recipe"}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed thread: %v", err)
	}
	return t
}

func SeedChat(tb testing.TB, ctx context.Context, tx *gorm.DB, threadID uuid.UUID, prev *types.Chat, kind types.ChatType, content string, cost int) *types.Chat {
	tb.Helper()
	c := &types.Chat{
		ID:       uuid.New(),
		ThreadID: threadID,
		ChatType: kind,
		Content:  content,
		Cost:     cost,
		SentTime: time.Now().UTC(),
	}
	if prev != nil {
		c.PreviousChatID = PtrUUID(prev.ID)
		c.Order = prev.Order + 1
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chat: %v", err)
	}
	return c
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
