package dto

import (
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	TelegramID  *int64 `json:"tg_id"`
	FirstName   string `json:"first_name"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// LoginResponse is returned after a successful Telegram login
type LoginResponse struct {
	OK             bool      `json:"ok"`
	AccessToken    string    `json:"access_token"`
	TokenType      string    `json:"token_type"`
	ExpiresAt      time.Time `json:"expires_at"`
	AuthDate       time.Time `json:"auth_date"`
	DefaultGroupID uint64    `json:"default_group_id"`
	User           UserDTO   `json:"user"`
}

// NotificationSettingsDTO represents a user's notification preferences
type NotificationSettingsDTO struct {
	NotifyNewTask     bool `json:"notify_new_task"`
	NotifyTaskUpdates bool `json:"notify_task_updates"`
}

// UpdateNotificationSettingsRequest is a partial settings update
type UpdateNotificationSettingsRequest struct {
	NotifyNewTask     *bool `json:"notify_new_task"`
	NotifyTaskUpdates *bool `json:"notify_task_updates"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		TelegramID:  user.TelegramID,
		FirstName:   user.FirstName,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
	}
}

// ToNotificationSettingsDTO converts NotificationSettings to its DTO
func ToNotificationSettingsDTO(s models.NotificationSettings) NotificationSettingsDTO {
	return NotificationSettingsDTO{
		NotifyNewTask:     s.NotifyNewTask,
		NotifyTaskUpdates: s.NotifyTaskUpdates,
	}
}
