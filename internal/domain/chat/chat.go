package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatType string

const (
	ChatTypeQuery    ChatType = "QUERY"
	ChatTypeResponse ChatType = "RESPONSE"
)

// Opposite returns the type a reply to this chat carries.
func (t ChatType) Opposite() ChatType {
	if t == ChatTypeQuery {
		return ChatTypeResponse
	}
	return ChatTypeQuery
}

func (t ChatType) Valid() bool {
	return t == ChatTypeQuery || t == ChatTypeResponse
}

// Chat is one message in a thread. Chats form a singly linked list through
// PreviousChatID; the successor is derived, never stored.
type Chat struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_chat_thread_order,unique,priority:1" json:"thread_id"`
	Order          int        `gorm:"column:chat_order;not null;index:idx_chat_thread_order,unique,priority:2" json:"order"`
	PreviousChatID *uuid.UUID `gorm:"type:uuid;column:previous_chat_id;index" json:"previous_chat_id"`
	ChatType       ChatType   `gorm:"column:chat_type;not null" json:"chat_type"`
	Content        string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Cost           int        `gorm:"column:cost;not null;default:0" json:"cost"`
	SentTime       time.Time  `gorm:"column:sent_time;not null" json:"sent_time"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Chat) TableName() string { return "chat" }

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.SentTime.IsZero() {
		c.SentTime = time.Now().UTC()
	}
	return nil
}

// Pending reports whether generation has not yet filled the chat.
func (c *Chat) Pending() bool {
	return c.Content == ""
}
