package models

import (
	"fmt"
	"time"
)

type InviteKind string

const (
	InviteKindToken  InviteKind = "token"
	InviteKindHandle InviteKind = "handle"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

type Invite struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	GroupID     uint64       `gorm:"not null;index" json:"group_id"`
	Kind        InviteKind   `gorm:"type:varchar(16);not null" json:"kind"`
	Token       *string      `gorm:"type:varchar(64);uniqueIndex" json:"token,omitempty"`
	Handle      string       `gorm:"type:varchar(64);index" json:"handle,omitempty"`
	Status      InviteStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedByID uint64       `gorm:"not null" json:"created_by_id"`
	DecidedByID *uint64      `json:"decided_by_id"`
	DecidedAt   *time.Time   `json:"decided_at"`
	// PendingKey is "<group>:<handle>" while a handle invite is pending and NULL
	// afterwards, so the unique index admits one pending invite per pair.
	PendingKey *string   `gorm:"type:varchar(96);uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Group     Group `gorm:"foreignKey:GroupID" json:"-"`
	CreatedBy User  `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (i Invite) IsPending() bool {
	return i.Status == InviteStatusPending
}

// HandlePendingKey builds the uniqueness key for a pending handle invite.
func HandlePendingKey(groupID uint64, handle string) string {
	return fmt.Sprintf("%d:%s", groupID, handle)
}
