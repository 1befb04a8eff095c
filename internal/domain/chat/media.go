package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
)

type ChatMedia struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"chat_id"`
	Type        MediaType      `gorm:"column:type;not null" json:"type"`
	URL         string         `gorm:"column:url;not null" json:"url"`
	ObjectKey   string         `gorm:"column:object_key;not null" json:"-"`
	MimeType    string         `gorm:"column:mime_type" json:"mime_type,omitempty"`
	Description string         `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Labels      datatypes.JSON `gorm:"column:labels" json:"labels,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ChatMedia) TableName() string { return "chat_media" }

func (m *ChatMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
