package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/dto"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// InviteHandler lets invitees see and decide invites.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

// ListPending returns the pending handle invites addressed to the user.
func (h *InviteHandler) ListPending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invites, err := h.invites.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"invites": toInviteDTOs(invites),
	})
}

// Accept accepts an invite by id.
func (h *InviteHandler) Accept(c *gin.Context) {
	h.decideByID(c, h.invites.AcceptInvite)
}

// Decline declines an invite by id.
func (h *InviteHandler) Decline(c *gin.Context) {
	h.decideByID(c, h.invites.DeclineInvite)
}

// AcceptToken accepts the invite behind a link token.
func (h *InviteHandler) AcceptToken(c *gin.Context) {
	h.decideByToken(c, h.invites.AcceptTokenInvite)
}

// DeclineToken declines the invite behind a link token.
func (h *InviteHandler) DeclineToken(c *gin.Context) {
	h.decideByToken(c, h.invites.DeclineTokenInvite)
}

type decideByIDFunc func(ctx context.Context, inviteID, actorID uint64) (*models.Invite, error)

type decideByTokenFunc func(ctx context.Context, token string, actorID uint64) (*models.Invite, error)

func (h *InviteHandler) decideByID(c *gin.Context, decide decideByIDFunc) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	inviteID, ok := uintParam(c, "id", "invite ID")
	if !ok {
		return
	}

	invite, err := decide(c.Request.Context(), inviteID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondInvite(c, invite)
}

func (h *InviteHandler) decideByToken(c *gin.Context, decide decideByTokenFunc) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	token := c.Param("token")
	if token == "" {
		apierrors.BadRequest(c, "Invalid invite token")
		return
	}

	invite, err := decide(c.Request.Context(), token, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondInvite(c, invite)
}

func respondInvite(c *gin.Context, invite *models.Invite) {
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"invite": dto.ToInviteDTO(*invite, ""),
	})
}

func toInviteDTOs(invites []models.Invite) []dto.InviteDTO {
	items := make([]dto.InviteDTO, len(invites))
	for i, inv := range invites {
		items[i] = dto.ToInviteDTO(inv, "")
	}
	return items
}
