package models

import "time"

// Membership ties a user to a group. The composite primary key allows at most
// one row per (group, user).
type Membership struct {
	GroupID    uint64    `gorm:"primarykey;autoIncrement:false" json:"group_id"`
	UserID     uint64    `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	CanTasks   bool      `gorm:"not null" json:"can_tasks"`
	CanFinance bool      `gorm:"not null" json:"can_finance"`
	JoinedAt   time.Time `json:"joined_at"`

	// Relations
	Group Group `gorm:"foreignKey:GroupID" json:"-"`
	User  User  `gorm:"foreignKey:UserID" json:"-"`
}

// FullMembership returns a membership carrying every capability.
func FullMembership(groupID, userID uint64) Membership {
	return Membership{
		GroupID:    groupID,
		UserID:     userID,
		CanTasks:   true,
		CanFinance: true,
		JoinedAt:   time.Now(),
	}
}
