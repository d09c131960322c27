package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/dto"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
	"github.com/yukikurage/collab-miniapp-api/internal/telegram"
)

// BotHandler serves the companion bot. Requests are authenticated by the
// shared bot key and name the acting user by Telegram id.
type BotHandler struct {
	identity *services.IdentityService
	invites  *services.InviteService
}

// NewBotHandler creates a new BotHandler.
func NewBotHandler(identity *services.IdentityService, invites *services.InviteService) *BotHandler {
	return &BotHandler{
		identity: identity,
		invites:  invites,
	}
}

// BotUserRequest identifies the Telegram user the bot acts for.
type BotUserRequest struct {
	TelegramID int64  `json:"tg_id" binding:"required"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
}

func (r BotUserRequest) claim() telegram.Claim {
	return telegram.Claim{
		ID:        r.TelegramID,
		Username:  r.Username,
		FirstName: r.FirstName,
	}
}

// Start onboards the user behind /start and issues a credential.
func (h *BotHandler) Start(c *gin.Context) {
	req, ok := bindBotUser(c)
	if !ok {
		return
	}

	result, err := h.identity.LoginFromClaim(c.Request.Context(), req.claim())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"access_token":     result.AccessToken,
		"expires_at":       result.ExpiresAt,
		"user":             dto.ToUserDTO(*result.User),
		"default_group_id": result.DefaultGroupID,
	})
}

// PendingInvites lists the handle invites waiting for the user.
func (h *BotHandler) PendingInvites(c *gin.Context) {
	req, ok := bindBotUser(c)
	if !ok {
		return
	}

	user, err := h.identity.ResolveOrCreate(c.Request.Context(), req.claim())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	invites, err := h.invites.ListPendingForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": toInviteDTOs(invites),
	})
}

// AcceptInvite accepts an invite on the user's behalf.
func (h *BotHandler) AcceptInvite(c *gin.Context) {
	h.decide(c, h.invites.AcceptInvite)
}

// DeclineInvite declines an invite on the user's behalf.
func (h *BotHandler) DeclineInvite(c *gin.Context) {
	h.decide(c, h.invites.DeclineInvite)
}

func (h *BotHandler) decide(c *gin.Context, decide decideByIDFunc) {
	inviteID, ok := uintParam(c, "id", "invite ID")
	if !ok {
		return
	}
	req, ok := bindBotUser(c)
	if !ok {
		return
	}

	user, err := h.identity.ResolveOrCreate(c.Request.Context(), req.claim())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	invite, err := decide(c.Request.Context(), inviteID, user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"status": invite.Status,
	})
}

func bindBotUser(c *gin.Context) (BotUserRequest, bool) {
	var req BotUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "tg_id is required", err.Error())
		return req, false
	}
	return req, true
}
