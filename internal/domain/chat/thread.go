package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultThreadTitle = "New Thread"

type Thread struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title  string    `gorm:"column:title;not null" json:"title"`
	Closed bool      `gorm:"column:closed;not null;default:false;index" json:"closed"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Thread) TableName() string { return "thread" }

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ThreadStats are the values derived from a thread's chats.
type ThreadStats struct {
	ChatCount int `json:"chat_count"`
	Cost      int `json:"cost"`
}
