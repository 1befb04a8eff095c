package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TypeCook = "COOK"

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName    string    `gorm:"column:last_name" json:"last_name"`
	Username    string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string    `gorm:"not null;column:password" json:"-"`
	UserType    string    `gorm:"not null;column:user_type;default:COOK" json:"user_type"`
	MaxChatCost int       `gorm:"not null;column:max_chat_cost" json:"max_chat_cost"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Name is the display name built from first and last name.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
