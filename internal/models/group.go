package models

import (
	"time"
)

type Group struct {
	ID      uint64 `gorm:"primarykey" json:"id"`
	Name    string `gorm:"type:varchar(128);not null" json:"name"`
	OwnerID uint64 `gorm:"not null;index" json:"owner_id"`
	// PersonalOwnerID is set only on a user's personal group, making it unique per user.
	PersonalOwnerID *uint64   `gorm:"uniqueIndex" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	Owner   User         `gorm:"foreignKey:OwnerID" json:"-"`
	Members []Membership `gorm:"foreignKey:GroupID" json:"-"`
	Tasks   []Task       `gorm:"foreignKey:GroupID" json:"-"`
}

// IsPersonal reports whether the group is its owner's implicit personal group.
func (g Group) IsPersonal() bool {
	return g.PersonalOwnerID != nil
}
