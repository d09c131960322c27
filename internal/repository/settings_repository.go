package repository

import (
	"context"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository is a GORM implementation of SettingsRepository
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &GormSettingsRepository{db: db}
}

// GetOrCreate returns the user's settings, inserting defaults on first access
func (r *GormSettingsRepository) GetOrCreate(ctx context.Context, userID uint64) (*models.NotificationSettings, error) {
	defaults := models.DefaultNotificationSettings(userID)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&defaults).Error; err != nil {
		return nil, err
	}

	var settings models.NotificationSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update saves the settings
func (r *GormSettingsRepository) Update(ctx context.Context, settings *models.NotificationSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
