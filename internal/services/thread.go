package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type ThreadService interface {
	Create(ctx context.Context, title string) (*chat.ThreadView, error)
	Get(ctx context.Context, threadID uuid.UUID) (*chat.ThreadView, error)
	Update(ctx context.Context, threadID uuid.UUID, upd chat.ThreadUpdate) (*chat.ThreadView, error)
	Delete(ctx context.Context, threadID uuid.UUID) error
	ListActive(ctx context.Context) ([]chat.ThreadView, error)
	// DeleteOpen deletes the caller's open threads and returns how many.
	DeleteOpen(ctx context.Context) (int, error)
}

// owned pairs a cached view with its owner so a cache hit can be checked
// without touching the database.
type owned[T any] struct {
	UserID uuid.UUID `json:"user_id"`
	View   T         `json:"view"`
}

func checkOwner[T any](v owned[T], user *types.User) (T, error) {
	if v.UserID != user.ID {
		var zero T
		return zero, chat.APIError(chat.ErrThreadNotOwned)
	}
	return v.View, nil
}

type threadService struct {
	log   *logger.Logger
	users repos.UserRepo
	store *chat.Store
	cache cache.Store
	ttl   time.Duration
}

func NewThreadService(log *logger.Logger, users repos.UserRepo, store *chat.Store, cacheStore cache.Store, ttl time.Duration) ThreadService {
	return &threadService{
		log:   log.With("service", "ThreadService"),
		users: users,
		store: store,
		cache: cacheStore,
		ttl:   ttl,
	}
}

func (ts *threadService) owner(ctx context.Context) (*chat.Owner, error) {
	u, err := currentUser(ctx, ts.users)
	if err != nil {
		return nil, err
	}
	return ts.store.ForUser(u), nil
}

func (ts *threadService) Create(ctx context.Context, title string) (*chat.ThreadView, error) {
	o, err := ts.owner(ctx)
	if err != nil {
		return nil, err
	}
	t, err := o.CreateThread(ctx, title)
	if err != nil {
		return nil, chat.APIError(err)
	}
	ts.log.Info("Thread created", "thread_id", t.ID, "user_id", t.UserID)
	return &chat.ThreadView{ID: t.ID, Title: t.Title}, nil
}

func (ts *threadService) Get(ctx context.Context, threadID uuid.UUID) (*chat.ThreadView, error) {
	o, err := ts.owner(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := cache.Load(ctx, ts.cache, cache.ThreadKey(threadID), ts.ttl, func() (owned[chat.ThreadView], error) {
		t, err := ts.store.Thread(ctx, threadID)
		if err != nil {
			return owned[chat.ThreadView]{}, err
		}
		v, err := ts.store.ThreadView(ctx, t)
		return owned[chat.ThreadView]{UserID: t.UserID, View: v}, err
	})
	if err != nil {
		return nil, chat.APIError(err)
	}
	v, err := checkOwner(cached, o.User())
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (ts *threadService) Update(ctx context.Context, threadID uuid.UUID, upd chat.ThreadUpdate) (*chat.ThreadView, error) {
	o, err := ts.owner(ctx)
	if err != nil {
		return nil, err
	}
	t, err := o.Thread(ctx, threadID)
	if err != nil {
		return nil, chat.APIError(err)
	}
	if err := ts.store.UpdateThread(ctx, t, upd); err != nil {
		return nil, chat.APIError(err)
	}
	if t, err = ts.store.Thread(ctx, threadID); err != nil {
		return nil, chat.APIError(err)
	}
	v, err := ts.store.ThreadView(ctx, t)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (ts *threadService) Delete(ctx context.Context, threadID uuid.UUID) error {
	o, err := ts.owner(ctx)
	if err != nil {
		return err
	}
	t, err := o.Thread(ctx, threadID)
	if err != nil {
		return chat.APIError(err)
	}
	if err := ts.store.DeleteThread(ctx, t); err != nil {
		return chat.APIError(err)
	}
	ts.log.Info("Thread deleted", "thread_id", t.ID, "user_id", t.UserID)
	return nil
}

func (ts *threadService) ListActive(ctx context.Context) ([]chat.ThreadView, error) {
	o, err := ts.owner(ctx)
	if err != nil {
		return nil, err
	}
	return cache.Load(ctx, ts.cache, cache.ThreadsKey(o.User().ID), ts.ttl, func() ([]chat.ThreadView, error) {
		threads, err := o.ActiveThreads(ctx)
		if err != nil {
			return nil, err
		}
		return ts.store.ThreadViews(ctx, threads)
	})
}

func (ts *threadService) DeleteOpen(ctx context.Context) (int, error) {
	o, err := ts.owner(ctx)
	if err != nil {
		return 0, err
	}
	threads, err := o.ActiveThreads(ctx)
	if err != nil {
		return 0, err
	}
	err = ts.store.Transaction(ctx, func(tx *chat.Store) error {
		for _, t := range threads {
			if err := tx.DeleteThread(ctx, t); err != nil {
				return fmt.Errorf("delete thread %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, chat.APIError(err)
	}
	ts.log.Info("Open threads deleted", "user_id", o.User().ID, "count", len(threads))
	return len(threads), nil
}

// DeletedThreadsMessage renders "1 thread deleted successfully" or
// "N threads deleted successfully".
func DeletedThreadsMessage(n int) string {
	if n == 1 {
		return "1 thread deleted successfully"
	}
	return fmt.Sprintf("%d threads deleted successfully", n)
}

