package user

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	UsernameTaken(dbc dbctx.Context, username string, exceptID uuid.UUID) (bool, error)
	EmailTaken(dbc dbctx.Context, email string, exceptID uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) (*types.User, error) {
	if u == nil {
		return nil, fmt.Errorf("missing user")
	}
	if err := dbc.DB(r.db).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID returns nil, nil when no user matches.
func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	if email == "" {
		return nil, nil
	}
	return r.first(dbc, "email = ?", email)
}

func (r *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	if username == "" {
		return nil, nil
	}
	return r.first(dbc, "username = ?", username)
}

func (r *userRepo) UsernameTaken(dbc dbctx.Context, username string, exceptID uuid.UUID) (bool, error) {
	return r.taken(dbc, "username = ?", username, exceptID)
}

func (r *userRepo) EmailTaken(dbc dbctx.Context, email string, exceptID uuid.UUID) (bool, error) {
	return r.taken(dbc, "email = ?", email, exceptID)
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepo) first(dbc dbctx.Context, query string, arg interface{}) (*types.User, error) {
	var row types.User
	if err := dbc.DB(r.db).Where(query, arg).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userRepo) taken(dbc dbctx.Context, query string, arg interface{}, exceptID uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Model(&types.User{}).Where(query, arg)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
