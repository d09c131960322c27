package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
)

// SettingsService manages per-user notification preferences.
type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// SettingsPatch carries optional flag changes.
type SettingsPatch struct {
	NotifyNewTask     *bool
	NotifyTaskUpdates *bool
}

// Get returns the user's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID uint64) (*models.NotificationSettings, error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return settings, nil
}

// Update applies the patch and returns the stored settings.
func (s *SettingsService) Update(ctx context.Context, userID uint64, patch SettingsPatch) (*models.NotificationSettings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.NotifyNewTask != nil {
		settings.NotifyNewTask = *patch.NotifyNewTask
	}
	if patch.NotifyTaskUpdates != nil {
		settings.NotifyTaskUpdates = *patch.NotifyTaskUpdates
	}

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update notification settings: %w", err)
	}
	return settings, nil
}
