package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	"github.com/yungbote/cookgpt-backend/internal/modules/chat"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type UserView struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	UserType       string    `json:"user_type"`
	ProfilePicture string    `json:"profile_picture"`
	MaxChatCost    int       `json:"max_chat_cost"`
	TotalChatCost  int       `json:"total_chat_cost"`
}

// UserUpdate holds the user-editable fields; nil means unchanged.
type UserUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
}

type UserService interface {
	GetMe(ctx context.Context) (*UserView, error)
	Update(ctx context.Context, upd UserUpdate) error
	Delete(ctx context.Context) error
}

type userService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	tokens repos.UserTokenRepo
	store  *chat.Store
}

func NewUserService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, tokens repos.UserTokenRepo, store *chat.Store) UserService {
	return &userService{
		db:     db,
		log:    log.With("service", "UserService"),
		users:  users,
		tokens: tokens,
		store:  store,
	}
}

func (us *userService) GetMe(ctx context.Context) (*UserView, error) {
	u, err := currentUser(ctx, us.users)
	if err != nil {
		return nil, err
	}
	total, err := us.store.ForUser(u).TotalChatCost(ctx)
	if err != nil {
		return nil, err
	}
	return &UserView{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
		Email:          u.Email,
		UserType:       u.UserType,
		ProfilePicture: gravatar(u.Email),
		MaxChatCost:    u.MaxChatCost,
		TotalChatCost:  total,
	}, nil
}

func gravatar(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:])
}

// Update applies upd. Changing the password revokes every issued token.
func (us *userService) Update(ctx context.Context, upd UserUpdate) error {
	u, err := currentUser(ctx, us.users)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if upd.FirstName != nil {
		v := strings.TrimSpace(*upd.FirstName)
		if err := validateName(v, "Name"); err != nil {
			return apierr.Unprocessable("invalid_name", err)
		}
		updates["first_name"] = v
	}
	if upd.LastName != nil {
		v := strings.TrimSpace(*upd.LastName)
		if err := validateName(v, "Last Name"); err != nil {
			return apierr.Unprocessable("invalid_name", err)
		}
		updates["last_name"] = v
	}
	var username, email string
	if upd.Username != nil && strings.TrimSpace(*upd.Username) != u.Username {
		username = strings.TrimSpace(*upd.Username)
		if err := validateUsername(username); err != nil {
			return apierr.Unprocessable("invalid_username", err)
		}
		updates["username"] = username
	}
	if upd.Email != nil && strings.ToLower(strings.TrimSpace(*upd.Email)) != u.Email {
		email = strings.ToLower(strings.TrimSpace(*upd.Email))
		if err := validateEmail(email); err != nil {
			return apierr.Unprocessable("invalid_email", err)
		}
		updates["email"] = email
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return apierr.Unprocessable("invalid_password", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		updates["password"] = string(hash)
	}
	if len(updates) == 0 {
		return nil
	}

	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := checkAvailable(dbc, us.users, username, email, u.ID); err != nil {
			return err
		}
		if err := us.users.UpdateFields(dbc, u.ID, updates); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if _, ok := updates["password"]; ok {
			if err := us.tokens.RevokeByUserID(dbc, u.ID); err != nil {
				return fmt.Errorf("revoke tokens: %w", err)
			}
			us.log.Info("Password changed, tokens revoked", "user_id", u.ID)
		}
		return nil
	})
}

func (us *userService) Delete(ctx context.Context) error {
	if _, err := currentUser(ctx, us.users); err != nil {
		return err
	}
	return apierr.Unprocessable("cannot_delete_user", ErrCannotDeleteUser)
}
