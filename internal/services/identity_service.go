package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/collab-miniapp-api/internal/auth"
	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/telegram"
	"gorm.io/gorm"
)

// IdentityService turns verified Telegram claims into users and credentials.
type IdentityService struct {
	userRepo   repository.UserRepository
	membership *MembershipService
	verifier   *telegram.InitDataVerifier
	tokens     *auth.TokenIssuer
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(
	userRepo repository.UserRepository,
	membership *MembershipService,
	verifier *telegram.InitDataVerifier,
	tokens *auth.TokenIssuer,
) *IdentityService {
	return &IdentityService{
		userRepo:   userRepo,
		membership: membership,
		verifier:   verifier,
		tokens:     tokens,
	}
}

// LoginResult is the outcome of a successful Telegram login.
type LoginResult struct {
	User           *models.User
	AccessToken    string
	ExpiresAt      time.Time
	DefaultGroupID uint64
	AuthDate       time.Time
}

// Login verifies the raw initData, resolves the user, ensures the personal
// group and issues a bearer credential.
func (s *IdentityService) Login(ctx context.Context, rawInitData string) (*LoginResult, error) {
	data, err := s.verifier.VerifyString(rawInitData)
	if err != nil {
		return nil, err
	}

	result, err := s.LoginFromClaim(ctx, data.Claim)
	if err != nil {
		return nil, err
	}
	result.AuthDate = data.AuthDate
	return result, nil
}

// LoginFromClaim onboards a claim that was authenticated by other means, such
// as the bot's shared key, and issues a bearer credential.
func (s *IdentityService) LoginFromClaim(ctx context.Context, claim telegram.Claim) (*LoginResult, error) {
	user, groupID, err := s.Onboard(ctx, claim)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential: %w", err)
	}

	return &LoginResult{
		User:           user,
		AccessToken:    token,
		ExpiresAt:      expiresAt,
		DefaultGroupID: groupID,
	}, nil
}

// Onboard resolves the claim to a user and returns it with its personal group.
func (s *IdentityService) Onboard(ctx context.Context, claim telegram.Claim) (*models.User, uint64, error) {
	user, err := s.ResolveOrCreate(ctx, claim)
	if err != nil {
		return nil, 0, err
	}

	groupID, err := s.membership.EnsurePersonalGroup(ctx, user.ID)
	if err != nil {
		return nil, 0, err
	}
	return user, groupID, nil
}

// ResolveOrCreate finds the user for a Telegram id or creates one. Known
// names are refreshed only from non-empty claim values.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, claim telegram.Claim) (*models.User, error) {
	if claim.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidClaim)
	}

	user, err := s.userRepo.FindByTelegramID(ctx, claim.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		firstName := claim.FirstName
		if firstName == "" {
			firstName = constants.DefaultFirstName
		}
		tgID := claim.ID
		user, err = s.userRepo.CreateIfAbsent(ctx, &models.User{
			TelegramID: &tgID,
			FirstName:  firstName,
			Username:   claim.Username,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if refreshFromClaim(user, claim) {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return user, nil
}

// GetUser returns a user by id.
func (s *IdentityService) GetUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func refreshFromClaim(user *models.User, claim telegram.Claim) bool {
	changed := false
	if claim.FirstName != "" && claim.FirstName != user.FirstName {
		user.FirstName = claim.FirstName
		changed = true
	}
	if claim.Username != "" && claim.Username != user.Username {
		user.Username = claim.Username
		changed = true
	}
	return changed
}
