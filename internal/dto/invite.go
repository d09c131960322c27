package dto

import (
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
)

// InviteDTO represents an invite in API responses
type InviteDTO struct {
	ID          uint64              `json:"id"`
	GroupID     uint64              `json:"group_id"`
	GroupName   string              `json:"group_name,omitempty"`
	Kind        models.InviteKind   `json:"kind"`
	Status      models.InviteStatus `json:"status"`
	Token       string              `json:"token,omitempty"`
	Link        string              `json:"link,omitempty"`
	Username    string              `json:"username,omitempty"`
	InvitedBy   *UserDTO            `json:"invited_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	DecidedAt   *time.Time          `json:"decided_at,omitempty"`
	DecidedByID *uint64             `json:"decided_by_id,omitempty"`
}

// HandleInviteRequest targets a Telegram handle
type HandleInviteRequest struct {
	Username string `json:"username" binding:"required,max=64"`
}

// ToInviteDTO converts an Invite model. link is only set for token invites.
func ToInviteDTO(invite models.Invite, link string) InviteDTO {
	dto := InviteDTO{
		ID:          invite.ID,
		GroupID:     invite.GroupID,
		GroupName:   invite.Group.Name,
		Kind:        invite.Kind,
		Status:      invite.Status,
		Link:        link,
		Username:    invite.Handle,
		CreatedAt:   invite.CreatedAt,
		DecidedAt:   invite.DecidedAt,
		DecidedByID: invite.DecidedByID,
	}
	if invite.Token != nil {
		dto.Token = *invite.Token
	}

	// Include inviter if preloaded
	if invite.CreatedBy.ID != 0 {
		inviter := ToUserDTO(invite.CreatedBy)
		dto.InvitedBy = &inviter
	}
	return dto
}
