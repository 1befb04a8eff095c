package auth

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, token *types.UserToken) (*types.UserToken, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error)
	GetByAccessToken(dbc dbctx.Context, accessToken string) (*types.UserToken, error)
	GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error)
	ListUsableByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserToken, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	RevokeByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, token *types.UserToken) (*types.UserToken, error) {
	if token == nil {
		return nil, fmt.Errorf("missing token")
	}
	if token.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if err := dbc.DB(r.db).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *userTokenRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *userTokenRepo) GetByAccessToken(dbc dbctx.Context, accessToken string) (*types.UserToken, error) {
	if accessToken == "" {
		return nil, nil
	}
	return r.first(dbc, "access_token = ?", accessToken)
}

func (r *userTokenRepo) GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return r.first(dbc, "refresh_token = ?", refreshToken)
}

// ListUsableByUser returns active, unrevoked tokens newest first.
func (r *userTokenRepo) ListUsableByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserToken, error) {
	var rows []*types.UserToken
	if userID == uuid.Nil {
		return rows, nil
	}
	err := dbc.DB(r.db).
		Where("user_id = ? AND active = ? AND revoked = ?", userID, true, false).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userTokenRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.UserToken{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userTokenRepo) RevokeByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	return dbc.DB(r.db).Model(&types.UserToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
}

func (r *userTokenRepo) first(dbc dbctx.Context, query string, arg interface{}) (*types.UserToken, error) {
	var row types.UserToken
	if err := dbc.DB(r.db).Where(query, arg).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
