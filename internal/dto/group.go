package dto

import (
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// GroupDTO represents a group in API responses
type GroupDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	OwnerID    uint64 `json:"owner_id"`
	IsPersonal bool   `json:"is_personal"`
}

// GroupSummaryDTO is a group with the caller's capabilities
type GroupSummaryDTO struct {
	GroupDTO
	CanTasks     bool  `json:"can_tasks"`
	CanFinance   bool  `json:"can_finance"`
	IsOwner      bool  `json:"is_owner"`
	MembersCount int64 `json:"members_count"`
}

// MemberDTO represents a group member in API responses
type MemberDTO struct {
	User       UserDTO   `json:"user"`
	CanTasks   bool      `json:"can_tasks"`
	CanFinance bool      `json:"can_finance"`
	IsOwner    bool      `json:"is_owner"`
	JoinedAt   time.Time `json:"joined_at"`
}

// CreateGroupRequest is the body of a group creation request
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

// UpdateMemberRequest changes member capabilities
type UpdateMemberRequest struct {
	CanTasks   *bool `json:"can_tasks"`
	CanFinance *bool `json:"can_finance"`
}

// ToGroupDTO converts a Group model to GroupDTO
func ToGroupDTO(group models.Group) GroupDTO {
	return GroupDTO{
		ID:         group.ID,
		Name:       group.Name,
		OwnerID:    group.OwnerID,
		IsPersonal: group.IsPersonal(),
	}
}

// ToGroupSummaryDTO converts a GroupSummary to its DTO
func ToGroupSummaryDTO(s services.GroupSummary) GroupSummaryDTO {
	return GroupSummaryDTO{
		GroupDTO:     ToGroupDTO(s.Group),
		CanTasks:     s.CanTasks,
		CanFinance:   s.CanFinance,
		IsOwner:      s.IsOwner,
		MembersCount: s.MembersCount,
	}
}

// ToMemberDTO converts a Membership with its preloaded user
func ToMemberDTO(m models.Membership, ownerID uint64) MemberDTO {
	return MemberDTO{
		User:       ToUserDTO(m.User),
		CanTasks:   m.CanTasks,
		CanFinance: m.CanFinance,
		IsOwner:    m.UserID == ownerID,
		JoinedAt:   m.JoinedAt,
	}
}
