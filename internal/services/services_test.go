package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/generation"
	"github.com/yungbote/cookgpt-backend/internal/generation/prompts"
	"github.com/yungbote/cookgpt-backend/internal/media"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat/stream"
	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
	"github.com/yungbote/cookgpt-backend/internal/platform/ctxutil"
	"github.com/yungbote/cookgpt-backend/internal/tasks"
)

const testReply = "Toast the rice in palm oil before adding the stock."

type env struct {
	ctx     context.Context
	db      *gorm.DB
	repos   repos.Set
	cache   *cache.MemoryStore
	store   *chat.Store
	backend *generation.Fake
	streams *stream.MemoryStore
	queue   *tasks.LocalQueue
	storage *media.MemoryStorage

	auth    AuthService
	users   UserService
	threads ThreadService
	chats   ChatService
}

func newEnv(t *testing.T, describers map[types.MediaType]media.Describer) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rs := repos.New(db, log)
	mem := cache.NewMemoryStore()
	storage := media.NewMemoryStorage()
	mediaSvc := media.NewService(storage, describers, media.Config{}, log)

	store := chat.NewStore(chat.StoreDeps{
		DB:      db,
		Log:     log,
		Threads: rs.Thread,
		Chats:   rs.Chat,
		Media:   rs.ChatMedia,
		Cache:   cache.NewInvalidator(mem, log),
		Blobs:   mediaSvc,
	})
	set, err := prompts.Default()
	require.NoError(t, err)
	backend := generation.NewFake(testReply)
	streams := stream.NewMemoryStore()
	sender := chat.NewSender(chat.SenderDeps{
		Store:   store,
		Users:   rs.User,
		Backend: backend,
		Prompts: set,
		Streams: streams,
		Log:     log,
	})
	queue := tasks.NewLocalQueue(sender, 2, time.Minute, log)
	t.Cleanup(queue.Wait)
	tailer := stream.NewTailer(streams, tasks.Checker(queue), stream.TailerConfig{PollInterval: 5 * time.Millisecond, ReadTimeout: 5 * time.Second}, log)

	return &env{
		ctx:     context.Background(),
		db:      db,
		repos:   rs,
		cache:   mem,
		store:   store,
		backend: backend,
		streams: streams,
		queue:   queue,
		storage: storage,
		auth: NewAuthService(db, log, rs.User, rs.UserToken, AuthConfig{
			Secret:             "test-secret",
			AccessTTL:          15 * time.Minute,
			RefreshTTL:         24 * time.Hour,
			AccessLeeway:       time.Minute,
			DefaultMaxChatCost: 1000,
		}),
		users:   NewUserService(db, log, rs.User, rs.UserToken, store),
		threads: NewThreadService(log, rs.User, store, mem, 0),
		chats: NewChatService(ChatServiceDeps{
			Log:     log,
			Users:   rs.User,
			Store:   store,
			Sender:  sender,
			Queue:   queue,
			Streams: streams,
			Tailer:  tailer,
			Media:   mediaSvc,
			Cache:   mem,
		}),
	}
}

// as returns a context authenticated as u.
func (e *env) as(u *types.User) context.Context {
	return ctxutil.WithRequestData(e.ctx, &ctxutil.RequestData{UserID: u.ID, TokenType: TokenTypeAccess})
}

func (e *env) seedUser(t *testing.T, username string) *types.User {
	t.Helper()
	return testutil.SeedUser(t, e.ctx, e.db, username)
}

func (e *env) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	e, ok := apierr.As(err)
	require.True(t, ok, "expected apierr, got %v", err)
	require.Equal(t, status, e.Status)
	require.Equal(t, code, e.Code)
}
