package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

type recordingBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingBlobs) DeleteObjects(_ context.Context, keys []string) error {
	r.mu.Lock()
	r.keys = append(r.keys, keys...)
	r.mu.Unlock()
	return nil
}

type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	repos  repos.Set
	cache  *cache.MemoryStore
	blobs  *recordingBlobs
	store  *Store
	user   *types.User
	thread *types.Thread
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.New(db, log)
	mem := cache.NewMemoryStore()
	blobs := &recordingBlobs{}
	store := NewStore(StoreDeps{
		DB:      db,
		Log:     log,
		Threads: rs.Thread,
		Chats:   rs.Chat,
		Media:   rs.ChatMedia,
		Cache:   cache.NewInvalidator(mem, log),
		Blobs:   blobs,
	})
	user := testutil.SeedUser(t, ctx, db, "ada")
	thread := testutil.SeedThread(t, ctx, db, user.ID)
	return &fixture{ctx: ctx, db: db, repos: rs, cache: mem, blobs: blobs, store: store, user: user, thread: thread}
}

func (f *fixture) warm(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := f.cache.Set(f.ctx, k, []byte(`{}`), 0); err != nil {
			t.Fatalf("warm %s: %v", k, err)
		}
	}
}

func (f *fixture) chain(t *testing.T, costs ...int) []*types.Chat {
	t.Helper()
	var out []*types.Chat
	var prev *types.Chat
	kind := types.ChatTypeQuery
	for _, cost := range costs {
		c := testutil.SeedChat(t, f.ctx, f.db, f.thread.ID, prev, kind, "chat", cost)
		out = append(out, c)
		prev = c
		kind = kind.Opposite()
	}
	return out
}

func (f *fixture) countChats(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&types.Chat{}).Where("thread_id = ?", f.thread.ID).Count(&n).Error; err != nil {
		t.Fatalf("count chats: %v", err)
	}
	return n
}

func (f *fixture) mustChat(t *testing.T, id uuid.UUID) *types.Chat {
	t.Helper()
	c, err := f.store.Chat(f.ctx, id)
	if err != nil {
		t.Fatalf("Chat(%s): %v", id, err)
	}
	return c
}
