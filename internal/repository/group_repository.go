package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGroupRepository is a GORM implementation of GroupRepository
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &GormGroupRepository{db: db}
}

// CreateWithOwner creates a group and the owner's membership atomically
func (r *GormGroupRepository) CreateWithOwner(ctx context.Context, group *models.Group, owner *models.Membership) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		owner.GroupID = group.ID
		return tx.Create(owner).Error
	})
}

// EnsurePersonal returns the owner's personal group and makes sure the owner
// holds a full membership in it. Concurrent callers race on the unique
// personal_owner_id column and all read back the single winner.
func (r *GormGroupRepository) EnsurePersonal(ctx context.Context, ownerID uint64, name string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Where("personal_owner_id = ?", ownerID).First(&group).Error
	if err == nil {
		owner := models.FullMembership(group.ID, ownerID)
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&owner).Error; err != nil {
			return nil, err
		}
		return &group, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := models.Group{
			Name:            name,
			OwnerID:         ownerID,
			PersonalOwnerID: &ownerID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "personal_owner_id"}},
			DoNothing: true,
		}).Create(&candidate).Error; err != nil {
			return err
		}

		if err := tx.Where("personal_owner_id = ?", ownerID).First(&group).Error; err != nil {
			return err
		}

		owner := models.FullMembership(group.ID, ownerID)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&owner).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByID finds a group by ID
func (r *GormGroupRepository) FindByID(ctx context.Context, id uint64) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindMember finds a specific group member
func (r *GormGroupRepository) FindMember(ctx context.Context, groupID, userID uint64) (*models.Membership, error) {
	var member models.Membership
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// AddMembersIfAbsent inserts memberships, leaving existing rows untouched
func (r *GormGroupRepository) AddMembersIfAbsent(ctx context.Context, members []models.Membership) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

// UpdateCapabilities sets both capability flags of a membership
func (r *GormGroupRepository) UpdateCapabilities(ctx context.Context, groupID, userID uint64, canTasks, canFinance bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]interface{}{
			"can_tasks":   canTasks,
			"can_finance": canFinance,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveMember removes a member from a group
func (r *GormGroupRepository) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.Membership{}).Error
}

// ListMembershipsByUserID lists the memberships of a user with their groups
func (r *GormGroupRepository) ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := r.db.WithContext(ctx).
		Preload("Group").
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all members of a group with their users and the group
func (r *GormGroupRepository) ListMembers(ctx context.Context, groupID uint64) ([]models.Membership, error) {
	var members []models.Membership
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Group").
		Where("group_id = ?", groupID).
		Order("joined_at ASC, user_id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountMembers returns the member count per group
func (r *GormGroupRepository) CountMembers(ctx context.Context, groupIDs []uint64) (map[uint64]int64, error) {
	counts := make(map[uint64]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		GroupID uint64
		Total   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Select("group_id, COUNT(*) AS total").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.GroupID] = row.Total
	}
	return counts, nil
}
