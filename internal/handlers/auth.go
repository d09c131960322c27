package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/dto"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	identity   *services.IdentityService
	membership *services.MembershipService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *services.IdentityService, membership *services.MembershipService) *AuthHandler {
	return &AuthHandler{
		identity:   identity,
		membership: membership,
	}
}

// TelegramLogin verifies WebApp initData and starts a session.
func (h *AuthHandler) TelegramLogin(c *gin.Context) {
	type TelegramLoginRequest struct {
		InitData string `json:"init_data" binding:"required"`
	}

	var req TelegramLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "init_data is required")
		return
	}

	result, err := h.identity.Login(c.Request.Context(), req.InitData)
	if err != nil {
		slog.Info("telegram login rejected", "error", err)
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyAccessToken, result.AccessToken)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		OK:             true,
		AccessToken:    result.AccessToken,
		TokenType:      "Bearer",
		ExpiresAt:      result.ExpiresAt,
		AuthDate:       result.AuthDate,
		DefaultGroupID: result.DefaultGroupID,
		User:           dto.ToUserDTO(*result.User),
	})
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user and their personal group.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	groupID, err := h.membership.EnsurePersonalGroup(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"user":             dto.ToUserDTO(*user),
		"default_group_id": groupID,
	})
}
