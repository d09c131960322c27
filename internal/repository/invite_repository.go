package repository

import (
	"context"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInviteRepository is a GORM implementation of InviteRepository
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &GormInviteRepository{db: db}
}

// Create stores a new invite
func (r *GormInviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

// CreatePendingHandle stores a handle invite unless the pending key is taken.
// The boolean reports whether this call created the row.
func (r *GormInviteRepository) CreatePendingHandle(ctx context.Context, invite *models.Invite) (*models.Invite, bool, error) {
	key := models.HandlePendingKey(invite.GroupID, invite.Handle)
	invite.PendingKey = &key

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pending_key"}},
			DoNothing: true,
		}).
		Create(invite)
	if result.Error != nil {
		return nil, false, result.Error
	}

	var stored models.Invite
	if err := r.db.WithContext(ctx).Where("pending_key = ?", key).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, stored.ID == invite.ID && result.RowsAffected == 1, nil
}

// FindByID finds an invite by ID
func (r *GormInviteRepository) FindByID(ctx context.Context, id uint64) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).Preload("Group").First(&invite, id).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// FindByToken finds a token invite by its token
func (r *GormInviteRepository) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).
		Preload("Group").
		Where("token = ? AND kind = ?", token, models.InviteKindToken).
		First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// ListPendingByHandle lists pending handle invites for a normalized handle
func (r *GormInviteRepository) ListPendingByHandle(ctx context.Context, handle string) ([]models.Invite, error) {
	var invites []models.Invite
	if err := r.db.WithContext(ctx).
		Preload("Group").
		Preload("CreatedBy").
		Where("handle = ? AND kind = ? AND status = ?", handle, models.InviteKindHandle, models.InviteStatusPending).
		Order("created_at ASC, id ASC").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// Accept marks the invite accepted and adds the membership in one transaction
func (r *GormInviteRepository) Accept(ctx context.Context, inviteID uint64, member *models.Membership, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := tx.First(&invite, inviteID).Error; err != nil {
			return err
		}

		if err := decide(tx, inviteID, models.InviteStatusAccepted, member.UserID, at); err != nil {
			return err
		}

		member.GroupID = invite.GroupID
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
	})
}

// Decline marks the invite declined
func (r *GormInviteRepository) Decline(ctx context.Context, inviteID, deciderID uint64, at time.Time) error {
	return decide(r.db.WithContext(ctx), inviteID, models.InviteStatusDeclined, deciderID, at)
}

// decide moves a pending invite to a terminal status. Only one caller can win
// the conditional update; the rest get ErrInviteNotPending.
func decide(db *gorm.DB, inviteID uint64, status models.InviteStatus, deciderID uint64, at time.Time) error {
	result := db.Model(&models.Invite{}).
		Where("id = ? AND status = ?", inviteID, models.InviteStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"decided_by_id": deciderID,
			"decided_at":    at,
			"pending_key":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotPending
	}
	return nil
}
