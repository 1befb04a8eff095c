package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type ChatRepo interface {
	Create(dbc dbctx.Context, chat *types.Chat) (*types.Chat, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chat, error)
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Chat, error)
	Last(dbc dbctx.Context, threadID uuid.UUID) (*types.Chat, error)
	Successor(dbc dbctx.Context, chatID uuid.UUID) (*types.Chat, error)
	Successors(dbc dbctx.Context, chatIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	Heads(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Chat, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) Create(dbc dbctx.Context, chat *types.Chat) (*types.Chat, error) {
	if chat == nil {
		return nil, fmt.Errorf("missing chat")
	}
	if chat.ThreadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread_id")
	}
	if err := dbc.DB(r.db).Create(chat).Error; err != nil {
		return nil, err
	}
	return chat, nil
}

// GetByID returns nil, nil when no chat matches.
func (r *chatRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chat, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *chatRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Chat, error) {
	var rows []*types.Chat
	if threadID == uuid.Nil {
		return rows, nil
	}
	if err := dbc.DB(r.db).Where("thread_id = ?", threadID).Order("chat_order ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Last returns the chat with the highest order in the thread.
func (r *chatRepo) Last(dbc dbctx.Context, threadID uuid.UUID) (*types.Chat, error) {
	if threadID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("thread_id = ?", threadID).Order("chat_order DESC"))
}

// Successor returns the chat whose previous_chat_id is chatID.
func (r *chatRepo) Successor(dbc dbctx.Context, chatID uuid.UUID) (*types.Chat, error) {
	if chatID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("previous_chat_id = ?", chatID).Order("chat_order ASC"))
}

// Successors maps each chat id to its successor's id, for chats that have one.
func (r *chatRepo) Successors(dbc dbctx.Context, chatIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	out := make(map[uuid.UUID]uuid.UUID, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var rows []*types.Chat
	if err := dbc.DB(r.db).
		Select("id, previous_chat_id").
		Where("previous_chat_id IN ?", chatIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.PreviousChatID != nil {
			out[*row.PreviousChatID] = row.ID
		}
	}
	return out, nil
}

// Heads returns the chats in a thread that have no predecessor.
func (r *chatRepo) Heads(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Chat, error) {
	var rows []*types.Chat
	if threadID == uuid.Nil {
		return rows, nil
	}
	if err := dbc.DB(r.db).
		Where("thread_id = ? AND previous_chat_id IS NULL", threadID).
		Order("chat_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Chat{}).Where("id = ?", id).Updates(updates).Error
}

func (r *chatRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Chat{}).Error
}

func (r *chatRepo) first(q *gorm.DB) (*types.Chat, error) {
	var row types.Chat
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
