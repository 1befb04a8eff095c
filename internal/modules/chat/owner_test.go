package chat

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

func TestOwnerAddMessageResolvesThread(t *testing.T) {
	f := newFixture(t)
	owner := f.store.ForUser(f.user)

	q, err := owner.AddQuery(f.ctx, Message{ThreadID: &f.thread.ID, Content: "q", Cost: 2})
	if err != nil {
		t.Fatalf("AddQuery: %v", err)
	}
	if q.ChatType != types.ChatTypeQuery {
		t.Fatalf("chat type=%q, want %q", q.ChatType, types.ChatTypeQuery)
	}

	r, err := owner.AddResponse(f.ctx, Message{Previous: q, Content: "a", Cost: 3})
	if err != nil {
		t.Fatalf("AddResponse: %v", err)
	}
	if r.ThreadID != f.thread.ID {
		t.Fatalf("response thread=%s, want %s", r.ThreadID, f.thread.ID)
	}

	total, err := owner.TotalChatCost(f.ctx)
	if err != nil {
		t.Fatalf("TotalChatCost: %v", err)
	}
	if total != 5 {
		t.Fatalf("TotalChatCost=%d, want 5", total)
	}
}

func TestOwnerRejectsBadThreads(t *testing.T) {
	f := newFixture(t)
	intruder := testutil.SeedUser(t, f.ctx, f.db, "mallory")
	owner := f.store.ForUser(intruder)
	missing := uuid.New()

	cases := []struct {
		name string
		msg  Message
		want error
	}{
		{"other users thread", Message{ThreadID: &f.thread.ID, Content: "q"}, ErrThreadNotOwned},
		{"unknown thread", Message{ThreadID: &missing, Content: "q"}, ErrInvalidThread},
		{"no thread or previous", Message{Content: "q"}, ErrMissingThreadOrPrevious},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := owner.AddQuery(f.ctx, tc.msg); !errors.Is(err, tc.want) {
				t.Fatalf("AddQuery err=%v, want %v", err, tc.want)
			}
		})
	}

	if _, err := owner.ClearChats(f.ctx, f.thread.ID); !errors.Is(err, ErrThreadNotOwned) {
		t.Fatalf("ClearChats err=%v, want %v", err, ErrThreadNotOwned)
	}
	if n := f.countChats(t); n != 0 {
		t.Fatalf("chats=%d, want 0", n)
	}
}

func TestOwnerChatLookupHidesOtherUsersChats(t *testing.T) {
	f := newFixture(t)
	chats := f.chain(t, 1)
	intruder := testutil.SeedUser(t, f.ctx, f.db, "eve")

	if _, err := f.store.ForUser(intruder).Chat(f.ctx, chats[0].ID); !errors.Is(err, ErrThreadNotOwned) {
		t.Fatalf("intruder Chat err=%v, want %v", err, ErrThreadNotOwned)
	}

	got, err := f.store.ForUser(f.user).Chat(f.ctx, chats[0].ID)
	if err != nil {
		t.Fatalf("owner Chat: %v", err)
	}
	if got.ID != chats[0].ID {
		t.Fatalf("Chat id=%s, want %s", got.ID, chats[0].ID)
	}

	if _, err := f.store.ForUser(f.user).Chat(f.ctx, uuid.New()); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("missing Chat err=%v, want %v", err, ErrChatNotFound)
	}
}

func TestOwnerClearChats(t *testing.T) {
	f := newFixture(t)
	f.chain(t, 1, 1, 1)

	n, err := f.store.ForUser(f.user).ClearChats(f.ctx, f.thread.ID)
	if err != nil {
		t.Fatalf("ClearChats: %v", err)
	}
	if n != 3 {
		t.Fatalf("ClearChats=%d, want 3", n)
	}
	if left := f.countChats(t); left != 0 {
		t.Fatalf("chats left=%d, want 0", left)
	}
}
