package models

import (
	"time"
)

// TaskAssignee is an extra assignee of a task. The responsible user is never
// stored here.
type TaskAssignee struct {
	TaskID    uint64    `gorm:"primarykey;autoIncrement:false" json:"task_id"`
	UserID    uint64    `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
