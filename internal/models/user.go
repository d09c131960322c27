package models

import (
	"time"
)

type User struct {
	ID         uint64 `gorm:"primarykey" json:"id"`
	TelegramID *int64 `gorm:"uniqueIndex" json:"tg_id"`
	FirstName  string `gorm:"type:varchar(128)" json:"first_name"`
	Username   string `gorm:"type:varchar(64)" json:"username"`
	// UsernameLower backs case-insensitive handle lookups.
	UsernameLower string    `gorm:"type:varchar(64);index" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

// DisplayName prefers the first name, then the handle.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "user"
}
