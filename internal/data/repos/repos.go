package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/data/repos/auth"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/chat"
	"github.com/yungbote/cookgpt-backend/internal/data/repos/user"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo
type ThreadRepo = chat.ThreadRepo
type ChatRepo = chat.ChatRepo
type ChatMediaRepo = chat.ChatMediaRepo

type Set struct {
	User      UserRepo
	UserToken UserTokenRepo
	Thread    ThreadRepo
	Chat      ChatRepo
	ChatMedia ChatMediaRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		User:      user.NewUserRepo(db, log),
		UserToken: auth.NewUserTokenRepo(db, log),
		Thread:    chat.NewThreadRepo(db, log),
		Chat:      chat.NewChatRepo(db, log),
		ChatMedia: chat.NewChatMediaRepo(db, log),
	}
}
