package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
	"gorm.io/gorm"
)

// InviteService runs the invite life-cycle.
type InviteService struct {
	inviteRepo repository.InviteRepository
	userRepo   repository.UserRepository
	membership *MembershipService
	webAppURL  string
	now        func() time.Time
}

// NewInviteService creates a new InviteService. webAppURL is the mini-app
// address invite links point at.
func NewInviteService(
	inviteRepo repository.InviteRepository,
	userRepo repository.UserRepository,
	membership *MembershipService,
	webAppURL string,
) *InviteService {
	return &InviteService{
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		membership: membership,
		webAppURL:  webAppURL,
		now:        time.Now,
	}
}

// NormalizeHandle trims whitespace, drops a leading "@" and lower-cases.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.ToLower(strings.TrimSpace(handle))
}

// InviteLink returns the mini-app link redeeming a token invite, or an empty
// string when no web app URL is configured.
func (s *InviteService) InviteLink(token string) string {
	if s.webAppURL == "" || token == "" {
		return ""
	}
	u, err := url.Parse(s.webAppURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("invite", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// CreateTokenInvite creates a single-use link invite. Owner only.
func (s *InviteService) CreateTokenInvite(ctx context.Context, actorID, groupID uint64) (*models.Invite, error) {
	if _, err := s.membership.RequireOwner(ctx, actorID, groupID); err != nil {
		return nil, err
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite := &models.Invite{
		GroupID:     groupID,
		Kind:        models.InviteKindToken,
		Token:       &token,
		Status:      models.InviteStatusPending,
		CreatedByID: actorID,
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return invite, nil
}

// CreateHandleInvite invites a Telegram handle. While an invite for the same
// (group, handle) is pending it is returned instead of a new one.
func (s *InviteService) CreateHandleInvite(ctx context.Context, actorID, groupID uint64, handle string) (*models.Invite, bool, error) {
	if _, err := s.membership.RequireOwner(ctx, actorID, groupID); err != nil {
		return nil, false, err
	}

	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, false, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	invite, created, err := s.inviteRepo.CreatePendingHandle(ctx, &models.Invite{
		GroupID:     groupID,
		Kind:        models.InviteKindHandle,
		Handle:      handle,
		Status:      models.InviteStatusPending,
		CreatedByID: actorID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create invite: %w", err)
	}
	return invite, created, nil
}

// ListPendingForUser lists pending handle invites addressed to the user's handle.
func (s *InviteService) ListPendingForUser(ctx context.Context, userID uint64) ([]models.Invite, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	handle := NormalizeHandle(user.Username)
	if handle == "" {
		return []models.Invite{}, nil
	}

	invites, err := s.inviteRepo.ListPendingByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// AcceptInvite accepts an invite by id and joins the actor with full
// capabilities.
func (s *InviteService) AcceptInvite(ctx context.Context, inviteID, actorID uint64) (*models.Invite, error) {
	invite, err := s.findInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, invite, actorID)
}

// DeclineInvite declines an invite by id.
func (s *InviteService) DeclineInvite(ctx context.Context, inviteID, actorID uint64) (*models.Invite, error) {
	invite, err := s.findInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	return s.decline(ctx, invite, actorID)
}

// AcceptTokenInvite accepts the invite behind a link token.
func (s *InviteService) AcceptTokenInvite(ctx context.Context, token string, actorID uint64) (*models.Invite, error) {
	invite, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.accept(ctx, invite, actorID)
}

// DeclineTokenInvite declines the invite behind a link token.
func (s *InviteService) DeclineTokenInvite(ctx context.Context, token string, actorID uint64) (*models.Invite, error) {
	invite, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.decline(ctx, invite, actorID)
}

func (s *InviteService) accept(ctx context.Context, invite *models.Invite, actorID uint64) (*models.Invite, error) {
	if err := s.checkDecider(ctx, invite, actorID); err != nil {
		return nil, err
	}

	member := models.FullMembership(invite.GroupID, actorID)
	if err := s.inviteRepo.Accept(ctx, invite.ID, &member, s.now()); err != nil {
		return nil, mapDecisionError(err)
	}
	return s.findInvite(ctx, invite.ID)
}

func (s *InviteService) decline(ctx context.Context, invite *models.Invite, actorID uint64) (*models.Invite, error) {
	if err := s.checkDecider(ctx, invite, actorID); err != nil {
		return nil, err
	}

	if err := s.inviteRepo.Decline(ctx, invite.ID, actorID, s.now()); err != nil {
		return nil, mapDecisionError(err)
	}
	return s.findInvite(ctx, invite.ID)
}

// checkDecider rejects decided invites first, then handle invites decided by
// anyone but the addressed handle.
func (s *InviteService) checkDecider(ctx context.Context, invite *models.Invite, actorID uint64) error {
	if !invite.IsPending() {
		return ErrInviteAlreadyDecided
	}
	if invite.Kind != models.InviteKindHandle {
		return nil
	}

	user, err := s.findUser(ctx, actorID)
	if err != nil {
		return err
	}
	if NormalizeHandle(user.Username) != invite.Handle {
		return fmt.Errorf("%w: invite is addressed to another user", ErrForbidden)
	}
	return nil
}

func (s *InviteService) findInvite(ctx context.Context, inviteID uint64) (*models.Invite, error) {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}
	return invite, nil
}

func (s *InviteService) findByToken(ctx context.Context, token string) (*models.Invite, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInviteNotFound
	}
	invite, err := s.inviteRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to find invite: %w", err)
	}
	return invite, nil
}

func (s *InviteService) findUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func mapDecisionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInviteNotPending):
		return ErrInviteAlreadyDecided
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrInviteNotFound
	default:
		return fmt.Errorf("failed to decide invite: %w", err)
	}
}
