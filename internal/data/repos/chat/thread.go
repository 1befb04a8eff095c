package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type ThreadRepo interface {
	Create(dbc dbctx.Context, thread *types.Thread) (*types.Thread, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Thread, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, openOnly bool) ([]*types.Thread, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	Stats(dbc dbctx.Context, threadIDs []uuid.UUID) (map[uuid.UUID]types.ThreadStats, error)
	TotalCostByUser(dbc dbctx.Context, userID uuid.UUID) (int, error)
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "ThreadRepo")}
}

func (r *threadRepo) Create(dbc dbctx.Context, thread *types.Thread) (*types.Thread, error) {
	if thread == nil {
		return nil, fmt.Errorf("missing thread")
	}
	if thread.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if err := dbc.DB(r.db).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

// GetByID returns nil, nil when no thread matches.
func (r *threadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Thread, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Thread
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *threadRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, openOnly bool) ([]*types.Thread, error) {
	var rows []*types.Thread
	if userID == uuid.Nil {
		return rows, nil
	}
	q := dbc.DB(r.db).Where("user_id = ?", userID)
	if openOnly {
		q = q.Where("closed = ?", false)
	}
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Thread{}).Where("id = ?", id).Updates(updates).Error
}

func (r *threadRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Thread{}).Error
}

type statsRow struct {
	ThreadID  uuid.UUID
	ChatCount int
	Cost      int
}

// Stats aggregates chat_count and cost per thread. Threads without chats
// are present with zero values.
func (r *threadRepo) Stats(dbc dbctx.Context, threadIDs []uuid.UUID) (map[uuid.UUID]types.ThreadStats, error) {
	out := make(map[uuid.UUID]types.ThreadStats, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}
	for _, id := range threadIDs {
		out[id] = types.ThreadStats{}
	}
	var rows []statsRow
	err := dbc.DB(r.db).Model(&types.Chat{}).
		Select("thread_id, COUNT(*) AS chat_count, COALESCE(SUM(cost), 0) AS cost").
		Where("thread_id IN ?", threadIDs).
		Group("thread_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ThreadID] = types.ThreadStats{ChatCount: row.ChatCount, Cost: row.Cost}
	}
	return out, nil
}

func (r *threadRepo) TotalCostByUser(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	var total int
	err := dbc.DB(r.db).Model(&types.Chat{}).
		Select("COALESCE(SUM(chat.cost), 0)").
		Joins("JOIN thread ON thread.id = chat.thread_id").
		Where("thread.user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
