package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/cache"
	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

// BlobRemover deletes stored media objects by key.
type BlobRemover interface {
	DeleteObjects(ctx context.Context, keys []string) error
}

type StoreDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Threads repos.ThreadRepo
	Chats   repos.ChatRepo
	Media   repos.ChatMediaRepo

	// Optional.
	Cache cache.Invalidator
	Blobs BlobRemover
}

// Store owns every mutation of threads and their chat chains. A Store bound
// to a transaction (see Transaction) records cache invalidations and blob
// removals and applies them only after commit.
type Store struct {
	deps StoreDeps
	log  *logger.Logger

	tx     *gorm.DB
	staged *staging
}

type staging struct {
	batch *cache.Batch
	blobs []string
}

func NewStore(deps StoreDeps) *Store {
	return &Store{deps: deps, log: deps.Log.With("component", "ChatStore")}
}

type NewChat struct {
	Content  string
	Type     types.ChatType
	Cost     int
	Previous *types.Chat
	SentTime time.Time
}

type ChatUpdate struct {
	Content  *string
	Cost     *int
	SentTime *time.Time
}

type ThreadUpdate struct {
	Title  *string
	Closed *bool
}

func (s *Store) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.tx}
}

// Transaction runs fn against a Store bound to one database transaction.
// Nested calls join the outer transaction.
func (s *Store) Transaction(ctx context.Context, fn func(*Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	st := &staging{batch: cache.NewBatch()}
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{deps: s.deps, log: s.log, tx: tx, staged: st})
	})
	if err != nil {
		st.batch.Discard()
		return err
	}
	st.batch.Flush(ctx, s.deps.Cache)
	s.deleteBlobs(ctx, st.blobs)
	return nil
}

func (s *Store) invalidate(ctx context.Context, m cache.Mutation, t cache.Target) {
	if s.staged != nil {
		s.staged.batch.Invalidate(ctx, m, t)
		return
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate(ctx, m, t)
	}
}

func (s *Store) removeBlobs(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if s.staged != nil {
		s.staged.blobs = append(s.staged.blobs, keys...)
		return
	}
	s.deleteBlobs(ctx, keys)
}

func (s *Store) deleteBlobs(ctx context.Context, keys []string) {
	if len(keys) == 0 || s.deps.Blobs == nil {
		return
	}
	if err := s.deps.Blobs.DeleteObjects(ctx, keys); err != nil {
		s.log.Warn("Media blob removal failed", "keys", keys, "error", err)
	}
}

// ---------- reads ----------

func (s *Store) Thread(ctx context.Context, id uuid.UUID) (*types.Thread, error) {
	t, err := s.deps.Threads.GetByID(s.dbc(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if t == nil {
		return nil, ErrThreadNotFound
	}
	return t, nil
}

func (s *Store) Chat(ctx context.Context, id uuid.UUID) (*types.Chat, error) {
	c, err := s.deps.Chats.GetByID(s.dbc(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if c == nil {
		return nil, ErrChatNotFound
	}
	return c, nil
}

func (s *Store) Chats(ctx context.Context, threadID uuid.UUID) ([]*types.Chat, error) {
	return s.deps.Chats.ListByThread(s.dbc(ctx), threadID)
}

// LastChat is the chat with no successor, nil for an empty thread.
func (s *Store) LastChat(ctx context.Context, threadID uuid.UUID) (*types.Chat, error) {
	return s.deps.Chats.Last(s.dbc(ctx), threadID)
}

func (s *Store) Threads(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*types.Thread, error) {
	return s.deps.Threads.ListByUser(s.dbc(ctx), userID, openOnly)
}

// Stats reads chat count and cost straight from storage so writes made
// earlier in the same request are always visible.
func (s *Store) Stats(ctx context.Context, threadIDs ...uuid.UUID) (map[uuid.UUID]types.ThreadStats, error) {
	return s.deps.Threads.Stats(s.dbc(ctx), threadIDs)
}

func (s *Store) ThreadStats(ctx context.Context, threadID uuid.UUID) (types.ThreadStats, error) {
	stats, err := s.Stats(ctx, threadID)
	if err != nil {
		return types.ThreadStats{}, err
	}
	return stats[threadID], nil
}

func (s *Store) TotalCost(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.deps.Threads.TotalCostByUser(s.dbc(ctx), userID)
}

func (s *Store) Media(ctx context.Context, chatIDs ...uuid.UUID) ([]*types.ChatMedia, error) {
	return s.deps.Media.ListByChatIDs(s.dbc(ctx), chatIDs)
}

func (s *Store) Successors(ctx context.Context, chatIDs ...uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	return s.deps.Chats.Successors(s.dbc(ctx), chatIDs)
}

// History builds the cost-bounded context window of a thread.
func (s *Store) History(ctx context.Context, threadID uuid.UUID, maxLength int) (*History, error) {
	chats, err := s.Chats(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return newHistory(chats, maxLength), nil
}

// ---------- chat mutations ----------

// AddChat appends a chat to thread. Without an explicit previous chat the
// thread's last chat is used. Two writers racing on the same predecessor
// collide on the (thread_id, chat_order) index and the loser gets
// ErrOrderConflict.
func (s *Store) AddChat(ctx context.Context, thread *types.Thread, in NewChat) (*types.Chat, error) {
	if thread == nil {
		return nil, ErrInvalidThread
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidChatType
	}
	prev := in.Previous
	if prev == nil {
		last, err := s.LastChat(ctx, thread.ID)
		if err != nil {
			return nil, fmt.Errorf("load last chat: %w", err)
		}
		prev = last
	} else if prev.ThreadID != thread.ID {
		return nil, ErrPreviousChatOtherThread
	}

	chat := &types.Chat{
		ThreadID: thread.ID,
		ChatType: in.Type,
		Content:  in.Content,
		Cost:     in.Cost,
		SentTime: in.SentTime,
	}
	if prev != nil {
		prevID := prev.ID
		chat.PreviousChatID = &prevID
		chat.Order = prev.Order + 1
	}
	if _, err := s.deps.Chats.Create(s.dbc(ctx), chat); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w (thread %s, order %d)", ErrOrderConflict, thread.ID, chat.Order)
		}
		return nil, fmt.Errorf("create chat: %w", err)
	}
	s.invalidate(ctx, cache.ChatCreated, cache.Target{ChatID: chat.ID, ThreadID: thread.ID, UserID: thread.UserID})
	return chat, nil
}

func (s *Store) AddQuery(ctx context.Context, thread *types.Thread, content string, cost int, previous *types.Chat) (*types.Chat, error) {
	return s.AddChat(ctx, thread, NewChat{Content: content, Type: types.ChatTypeQuery, Cost: cost, Previous: previous})
}

func (s *Store) AddResponse(ctx context.Context, thread *types.Thread, content string, cost int, previous *types.Chat) (*types.Chat, error) {
	return s.AddChat(ctx, thread, NewChat{Content: content, Type: types.ChatTypeResponse, Cost: cost, Previous: previous})
}

// Reply adds the successor of chat with the opposite chat type.
func (s *Store) Reply(ctx context.Context, chat *types.Chat, content string, cost int) (*types.Chat, error) {
	thread, err := s.Thread(ctx, chat.ThreadID)
	if err != nil {
		return nil, err
	}
	return s.AddChat(ctx, thread, NewChat{
		Content:  content,
		Type:     chat.ChatType.Opposite(),
		Cost:     cost,
		Previous: chat,
	})
}

// UpdateChat applies the non-nil fields of upd. A filled chat never goes
// back to empty content.
func (s *Store) UpdateChat(ctx context.Context, chat *types.Chat, upd ChatUpdate) error {
	updates := map[string]interface{}{}
	if upd.Content != nil {
		if *upd.Content == "" && chat.Content != "" {
			return ErrInvalidTransition
		}
		updates["content"] = *upd.Content
	}
	if upd.Cost != nil {
		updates["cost"] = *upd.Cost
	}
	if upd.SentTime != nil {
		updates["sent_time"] = upd.SentTime.UTC()
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.deps.Chats.UpdateFields(s.dbc(ctx), chat.ID, updates); err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	if upd.Content != nil {
		chat.Content = *upd.Content
	}
	if upd.Cost != nil {
		chat.Cost = *upd.Cost
	}
	if upd.SentTime != nil {
		chat.SentTime = upd.SentTime.UTC()
	}
	s.invalidate(ctx, cache.ChatUpdated, cache.Target{ChatID: chat.ID, ThreadID: chat.ThreadID})
	return nil
}

// DeleteChat removes chat and every chat after it in the chain. Chats are
// removed tail first: media rows, then the chat row, then its cache keys.
// Returns the number of chats deleted.
func (s *Store) DeleteChat(ctx context.Context, chat *types.Chat) (int, error) {
	deleted := 0
	err := s.Transaction(ctx, func(tx *Store) error {
		chain, err := tx.chainFrom(ctx, chat)
		if err != nil {
			return err
		}
		var userID uuid.UUID
		thread, err := tx.deps.Threads.GetByID(tx.dbc(ctx), chat.ThreadID)
		if err != nil {
			return fmt.Errorf("load thread: %w", err)
		}
		if thread != nil {
			userID = thread.UserID
		}
		for i := len(chain) - 1; i >= 0; i-- {
			if err := tx.deleteOne(ctx, chain[i], userID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) chainFrom(ctx context.Context, head *types.Chat) ([]*types.Chat, error) {
	chain := []*types.Chat{head}
	seen := map[uuid.UUID]bool{head.ID: true}
	cur := head
	for {
		next, err := s.deps.Chats.Successor(s.dbc(ctx), cur.ID)
		if err != nil {
			return nil, fmt.Errorf("load successor: %w", err)
		}
		if next == nil || seen[next.ID] {
			return chain, nil
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next
	}
}

func (s *Store) deleteOne(ctx context.Context, chat *types.Chat, userID uuid.UUID) error {
	dbc := s.dbc(ctx)
	media, err := s.deps.Media.ListByChatIDs(dbc, []uuid.UUID{chat.ID})
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	var keys []string
	for _, m := range media {
		if m.ObjectKey != "" {
			keys = append(keys, m.ObjectKey)
		}
	}
	if err := s.deps.Media.DeleteByChatID(dbc, chat.ID); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if err := s.deps.Chats.Delete(dbc, chat.ID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	target := cache.Target{ChatID: chat.ID, ThreadID: chat.ThreadID, UserID: userID}
	if chat.PreviousChatID != nil {
		target.PreviousChatID = *chat.PreviousChatID
	}
	s.invalidate(ctx, cache.ChatDeleted, target)
	s.removeBlobs(ctx, keys)
	return nil
}

// AttachMedia records an uploaded object against chat.
func (s *Store) AttachMedia(ctx context.Context, chat *types.Chat, media *types.ChatMedia) error {
	media.ChatID = chat.ID
	if _, err := s.deps.Media.Create(s.dbc(ctx), media); err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	s.invalidate(ctx, cache.ChatUpdated, cache.Target{ChatID: chat.ID, ThreadID: chat.ThreadID})
	return nil
}

// DescribeMedia stores the analysis result of an attachment.
func (s *Store) DescribeMedia(ctx context.Context, chat *types.Chat, mediaID uuid.UUID, description string, labels datatypes.JSON) error {
	updates := map[string]interface{}{"description": strings.TrimSpace(description)}
	if len(labels) > 0 {
		updates["labels"] = labels
	}
	if err := s.deps.Media.UpdateFields(s.dbc(ctx), mediaID, updates); err != nil {
		return fmt.Errorf("update media: %w", err)
	}
	s.invalidate(ctx, cache.ChatUpdated, cache.Target{ChatID: chat.ID, ThreadID: chat.ThreadID})
	return nil
}

// ---------- thread mutations ----------

func (s *Store) CreateThread(ctx context.Context, userID uuid.UUID, title string) (*types.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = types.DefaultThreadTitle
	}
	thread := &types.Thread{UserID: userID, Title: title}
	if _, err := s.deps.Threads.Create(s.dbc(ctx), thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	s.invalidate(ctx, cache.ThreadCreated, cache.Target{ThreadID: thread.ID, UserID: userID})
	return thread, nil
}

func (s *Store) UpdateThread(ctx context.Context, thread *types.Thread, upd ThreadUpdate) error {
	updates := map[string]interface{}{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			title = types.DefaultThreadTitle
		}
		updates["title"] = title
		upd.Title = &title
	}
	if upd.Closed != nil {
		updates["closed"] = *upd.Closed
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.deps.Threads.UpdateFields(s.dbc(ctx), thread.ID, updates); err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	if upd.Title != nil {
		thread.Title = *upd.Title
	}
	if upd.Closed != nil {
		thread.Closed = *upd.Closed
	}
	s.invalidate(ctx, cache.ThreadUpdated, cache.Target{ThreadID: thread.ID, UserID: thread.UserID})
	return nil
}

// Close hides thread from active listings.
func (s *Store) Close(ctx context.Context, thread *types.Thread) error {
	closed := true
	return s.UpdateThread(ctx, thread, ThreadUpdate{Closed: &closed})
}

// Clear deletes every chain head of thread, and with it each full chain.
func (s *Store) Clear(ctx context.Context, thread *types.Thread) (int, error) {
	deleted := 0
	err := s.Transaction(ctx, func(tx *Store) error {
		heads, err := tx.deps.Chats.Heads(tx.dbc(ctx), thread.ID)
		if err != nil {
			return fmt.Errorf("load chain heads: %w", err)
		}
		for _, head := range heads {
			n, err := tx.DeleteChat(ctx, head)
			if err != nil {
				return err
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *Store) DeleteThread(ctx context.Context, thread *types.Thread) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Clear(ctx, thread); err != nil {
			return err
		}
		if err := tx.deps.Threads.Delete(tx.dbc(ctx), thread.ID); err != nil {
			return fmt.Errorf("delete thread: %w", err)
		}
		tx.invalidate(ctx, cache.ThreadDeleted, cache.Target{ThreadID: thread.ID, UserID: thread.UserID})
		return nil
	})
}
