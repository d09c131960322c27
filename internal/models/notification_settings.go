package models

import "time"

type NotificationEvent string

const (
	EventTaskCreated NotificationEvent = "task_created"
	EventTaskUpdated NotificationEvent = "task_updated"
)

type NotificationSettings struct {
	UserID            uint64    `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	NotifyNewTask     bool      `gorm:"not null" json:"notify_new_task"`
	NotifyTaskUpdates bool      `gorm:"not null" json:"notify_task_updates"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultNotificationSettings returns settings with every class enabled.
func DefaultNotificationSettings(userID uint64) NotificationSettings {
	return NotificationSettings{
		UserID:            userID,
		NotifyNewTask:     true,
		NotifyTaskUpdates: true,
	}
}

// Allows reports whether the given event class is enabled.
func (s NotificationSettings) Allows(event NotificationEvent) bool {
	switch event {
	case EventTaskCreated:
		return s.NotifyNewTask
	case EventTaskUpdated:
		return s.NotifyTaskUpdates
	default:
		return false
	}
}
