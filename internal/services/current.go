package services

import (
	"context"
	"errors"

	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
	"github.com/yungbote/cookgpt-backend/internal/platform/ctxutil"
)

var errUnauthenticated = errors.New("missing or invalid token")

// currentUser loads the caller attached by the auth middleware.
func currentUser(ctx context.Context, users repos.UserRepo) (*types.User, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Unauthorized("unauthorized", errUnauthenticated)
	}
	u, err := users.GetByID(dbctx.Context{Ctx: ctx}, rd.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.Unauthorized("unauthorized", errUnauthenticated)
	}
	return u, nil
}
