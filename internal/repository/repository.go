package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
)

// ErrInviteNotPending is returned when a decision targets an invite that was
// already accepted or declined.
var ErrInviteNotPending = errors.New("invite repository: invite is not pending")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create stores a task and its extra assignees in one transaction.
	// admit memberships are inserted in the same transaction if absent.
	Create(ctx context.Context, task *models.Task, assigneeIDs []uint64, admit ...models.Membership) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update saves a task. A non-nil assigneeIDs replaces the extra assignee set.
	Update(ctx context.Context, task *models.Task, assigneeIDs *[]uint64, admit ...models.Membership) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	GroupID        uint64
	Status         *models.TaskStatus
	// AssignedUserID matches the responsible user or an extra assignee
	AssignedUserID *uint64
	DeadlineFrom   *time.Time
	DeadlineTo     *time.Time
	Pagination     utils.PaginationParams
}

// GroupRepository defines the interface for group and membership data access
type GroupRepository interface {
	// CreateWithOwner creates a group and the owner's membership atomically
	CreateWithOwner(ctx context.Context, group *models.Group, owner *models.Membership) error

	// EnsurePersonal returns the owner's personal group, creating it and the
	// owner's membership when absent
	EnsurePersonal(ctx context.Context, ownerID uint64, name string) (*models.Group, error)

	// FindByID finds a group by ID
	FindByID(ctx context.Context, id uint64) (*models.Group, error)

	// FindMember finds a specific group member
	FindMember(ctx context.Context, groupID, userID uint64) (*models.Membership, error)

	// AddMembersIfAbsent inserts memberships, leaving existing rows untouched
	AddMembersIfAbsent(ctx context.Context, members []models.Membership) error

	// UpdateCapabilities sets both capability flags of a membership
	UpdateCapabilities(ctx context.Context, groupID, userID uint64, canTasks, canFinance bool) error

	// RemoveMember removes a member from a group
	RemoveMember(ctx context.Context, groupID, userID uint64) error

	// ListMembershipsByUserID lists the memberships of a user with their groups
	ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.Membership, error)

	// ListMembers lists all members of a group with their users
	ListMembers(ctx context.Context, groupID uint64) ([]models.Membership, error)

	// CountMembers returns the member count per group
	CountMembers(ctx context.Context, groupIDs []uint64) (map[uint64]int64, error)
}

// InviteRepository defines the interface for invite data access
type InviteRepository interface {
	// Create stores a new invite
	Create(ctx context.Context, invite *models.Invite) error

	// CreatePendingHandle stores a handle invite unless one is already pending
	// for the same (group, handle); it returns the pending invite either way
	CreatePendingHandle(ctx context.Context, invite *models.Invite) (*models.Invite, bool, error)

	// FindByID finds an invite by ID
	FindByID(ctx context.Context, id uint64) (*models.Invite, error)

	// FindByToken finds a token invite by its token
	FindByToken(ctx context.Context, token string) (*models.Invite, error)

	// ListPendingByHandle lists pending handle invites for a normalized handle
	ListPendingByHandle(ctx context.Context, handle string) ([]models.Invite, error)

	// Accept adds the membership and marks the invite accepted atomically
	Accept(ctx context.Context, inviteID uint64, member *models.Membership, at time.Time) error

	// Decline marks the invite declined
	Decline(ctx context.Context, inviteID, deciderID uint64, at time.Time) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateIfAbsent inserts a user unless its Telegram id is taken and
	// returns the stored row
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error)

	// Update saves a user
	Update(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDs finds the users that exist among the given IDs
	FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error)

	// FindByTelegramID finds a user by Telegram id
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// FindByUsername finds a user by handle, case-insensitively
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SettingsRepository defines the interface for notification settings
type SettingsRepository interface {
	// GetOrCreate returns the user's settings, creating defaults when absent
	GetOrCreate(ctx context.Context, userID uint64) (*models.NotificationSettings, error)

	// Update saves the settings
	Update(ctx context.Context, settings *models.NotificationSettings) error
}
