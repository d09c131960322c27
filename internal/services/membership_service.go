package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"gorm.io/gorm"
)

// MembershipService provides business logic for groups and memberships.
type MembershipService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(groupRepo repository.GroupRepository, userRepo repository.UserRepository) *MembershipService {
	return &MembershipService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

// GroupSummary is a group as seen by one of its members.
type GroupSummary struct {
	Group        models.Group
	CanTasks     bool
	CanFinance   bool
	IsOwner      bool
	MembersCount int64
}

// CapabilityPatch carries optional capability changes.
type CapabilityPatch struct {
	CanTasks   *bool
	CanFinance *bool
}

// EnsurePersonalGroup returns the user's personal group id, creating the group
// and the owner's membership on first use.
func (s *MembershipService) EnsurePersonalGroup(ctx context.Context, userID uint64) (uint64, error) {
	group, err := s.groupRepo.EnsurePersonal(ctx, userID, constants.PersonalGroupName)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure personal group: %w", err)
	}
	return group.ID, nil
}

// CreateGroup creates a group and joins the owner with every capability.
func (s *MembershipService) CreateGroup(ctx context.Context, ownerID uint64, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name cannot be empty", ErrInvalidInput)
	}

	group := &models.Group{
		Name:    name,
		OwnerID: ownerID,
	}
	owner := models.FullMembership(0, ownerID)

	if err := s.groupRepo.CreateWithOwner(ctx, group, &owner); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// RequireMember returns the caller's membership or ErrNotAMember.
func (s *MembershipService) RequireMember(ctx context.Context, userID, groupID uint64) (*models.Membership, error) {
	member, err := s.groupRepo.FindMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return member, nil
}

// RequireTaskAccess requires a membership carrying can_tasks.
func (s *MembershipService) RequireTaskAccess(ctx context.Context, userID, groupID uint64) (*models.Membership, error) {
	member, err := s.RequireMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member.CanTasks {
		return nil, fmt.Errorf("%w: task access is disabled for this member", ErrForbidden)
	}
	return member, nil
}

// RequireOwner returns the group when userID owns it.
func (s *MembershipService) RequireOwner(ctx context.Context, userID, groupID uint64) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if group.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the group owner can do this", ErrForbidden)
	}
	return group, nil
}

// ListGroupsForUser returns the groups the user belongs to.
func (s *MembershipService) ListGroupsForUser(ctx context.Context, userID uint64) ([]GroupSummary, error) {
	memberships, err := s.groupRepo.ListMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	groupIDs := make([]uint64, len(memberships))
	for i, m := range memberships {
		groupIDs[i] = m.GroupID
	}
	counts, err := s.groupRepo.CountMembers(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	summaries := make([]GroupSummary, len(memberships))
	for i, m := range memberships {
		summaries[i] = GroupSummary{
			Group:        m.Group,
			CanTasks:     m.CanTasks,
			CanFinance:   m.CanFinance,
			IsOwner:      m.Group.OwnerID == userID,
			MembersCount: counts[m.GroupID],
		}
	}
	return summaries, nil
}

// ListMembers returns the members of a group the caller belongs to.
func (s *MembershipService) ListMembers(ctx context.Context, actorID, groupID uint64) ([]models.Membership, error) {
	if _, err := s.RequireMember(ctx, actorID, groupID); err != nil {
		return nil, err
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// UpdateCapabilities changes a member's flags. Owner only; the owner's own
// flags are fixed.
func (s *MembershipService) UpdateCapabilities(ctx context.Context, actorID, groupID, userID uint64, patch CapabilityPatch) (*models.Membership, error) {
	group, err := s.RequireOwner(ctx, actorID, groupID)
	if err != nil {
		return nil, err
	}
	if userID == group.OwnerID {
		return nil, fmt.Errorf("%w: owner capabilities cannot be changed", ErrInvalidInput)
	}

	member, err := s.groupRepo.FindMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	if patch.CanTasks != nil {
		member.CanTasks = *patch.CanTasks
	}
	if patch.CanFinance != nil {
		member.CanFinance = *patch.CanFinance
	}

	if err := s.groupRepo.UpdateCapabilities(ctx, groupID, userID, member.CanTasks, member.CanFinance); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

// RemoveMember removes a member. The owner may remove anyone but themselves;
// other members may only leave.
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, groupID, userID uint64) error {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to find group: %w", err)
	}

	if userID == group.OwnerID {
		return ErrCannotRemoveOwner
	}
	if actorID != group.OwnerID && actorID != userID {
		return fmt.Errorf("%w: only the group owner can remove members", ErrForbidden)
	}

	if _, err := s.groupRepo.FindMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// EnsureMembersFor admits every existing user among userIDs with full
// capabilities. Unknown ids are skipped. The returned ids keep input order
// without duplicates.
func (s *MembershipService) EnsureMembersFor(ctx context.Context, groupID uint64, userIDs []uint64) ([]uint64, error) {
	resolved, members, err := s.PlanAdmissions(ctx, groupID, userIDs)
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.AddMembersIfAbsent(ctx, members); err != nil {
		return nil, fmt.Errorf("failed to add members: %w", err)
	}
	return resolved, nil
}

// PlanAdmissions resolves userIDs like EnsureMembersFor but writes nothing.
// The returned memberships are for the caller to insert alongside its own
// changes.
func (s *MembershipService) PlanAdmissions(ctx context.Context, groupID uint64, userIDs []uint64) ([]uint64, []models.Membership, error) {
	unique := dedupeIDs(userIDs)
	if len(unique) == 0 {
		return []uint64{}, nil, nil
	}

	users, err := s.userRepo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	known := make(map[uint64]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}

	resolved := make([]uint64, 0, len(users))
	members := make([]models.Membership, 0, len(users))
	for _, id := range unique {
		if _, ok := known[id]; !ok {
			continue
		}
		resolved = append(resolved, id)
		members = append(members, models.FullMembership(groupID, id))
	}
	return resolved, members, nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
