package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type ChatMediaRepo interface {
	Create(dbc dbctx.Context, media *types.ChatMedia) (*types.ChatMedia, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMedia, error)
	ListByChatIDs(dbc dbctx.Context, chatIDs []uuid.UUID) ([]*types.ChatMedia, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByChatID(dbc dbctx.Context, chatID uuid.UUID) error
}

type chatMediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMediaRepo(db *gorm.DB, baseLog *logger.Logger) ChatMediaRepo {
	return &chatMediaRepo{db: db, log: baseLog.With("repo", "ChatMediaRepo")}
}

func (r *chatMediaRepo) Create(dbc dbctx.Context, media *types.ChatMedia) (*types.ChatMedia, error) {
	if media == nil {
		return nil, fmt.Errorf("missing media")
	}
	if media.ChatID == uuid.Nil {
		return nil, fmt.Errorf("missing chat_id")
	}
	if err := dbc.DB(r.db).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

func (r *chatMediaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMedia, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ChatMedia
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *chatMediaRepo) ListByChatIDs(dbc dbctx.Context, chatIDs []uuid.UUID) ([]*types.ChatMedia, error) {
	var rows []*types.ChatMedia
	if len(chatIDs) == 0 {
		return rows, nil
	}
	if err := dbc.DB(r.db).Where("chat_id IN ?", chatIDs).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatMediaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.ChatMedia{}).Where("id = ?", id).Updates(updates).Error
}

func (r *chatMediaRepo) DeleteByChatID(dbc dbctx.Context, chatID uuid.UUID) error {
	if chatID == uuid.Nil {
		return fmt.Errorf("missing chat_id")
	}
	return dbc.DB(r.db).Where("chat_id = ?", chatID).Delete(&types.ChatMedia{}).Error
}
