package domain

import (
	"github.com/yungbote/cookgpt-backend/internal/domain/auth"
	"github.com/yungbote/cookgpt-backend/internal/domain/chat"
	"github.com/yungbote/cookgpt-backend/internal/domain/user"
)

const (
	ChatTypeQuery    = chat.ChatTypeQuery
	ChatTypeResponse = chat.ChatTypeResponse

	MediaTypeImage    = chat.MediaTypeImage
	MediaTypeVideo    = chat.MediaTypeVideo
	MediaTypeAudio    = chat.MediaTypeAudio
	MediaTypeDocument = chat.MediaTypeDocument

	UserTypeCook       = user.TypeCook
	DefaultThreadTitle = chat.DefaultThreadTitle
)

type (
	User        = user.User
	UserToken   = auth.UserToken
	Thread      = chat.Thread
	ThreadStats = chat.ThreadStats
	Chat        = chat.Chat
	ChatType    = chat.ChatType
	ChatMedia   = chat.ChatMedia
	MediaType   = chat.MediaType
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Thread{},
		&Chat{},
		&ChatMedia{},
	}
}
