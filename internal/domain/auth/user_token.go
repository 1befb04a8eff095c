package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserToken is one issued access/refresh pair. Its ID is the JWT jti.
type UserToken struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	AccessToken      string    `gorm:"uniqueIndex;not null;column:access_token" json:"-"`
	RefreshToken     string    `gorm:"uniqueIndex;not null;column:refresh_token" json:"-"`
	AccessExpiresAt  time.Time `gorm:"not null;column:access_expires_at" json:"access_expires_at"`
	RefreshExpiresAt time.Time `gorm:"not null;column:refresh_expires_at" json:"refresh_expires_at"`
	Active           bool      `gorm:"not null;default:true;column:active" json:"active"`
	Revoked          bool      `gorm:"not null;default:false;column:revoked" json:"revoked"`
	CreatedAt        time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (UserToken) TableName() string { return "user_token" }

func (t *UserToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Usable reports whether the token may still authenticate requests.
func (t *UserToken) Usable() bool {
	return t != nil && t.Active && !t.Revoked
}
