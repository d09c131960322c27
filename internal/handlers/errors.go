package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/auth"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/middleware"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
	"github.com/yukikurage/collab-miniapp-api/internal/telegram"
)

// respondServiceError maps service errors onto API errors. Unknown errors are
// logged and reported as internal errors without their details.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, telegram.ErrVerificationFailed):
		apierrors.Respond(c, http.StatusUnauthorized, apierrors.ErrCodeVerificationFailed, "Telegram login could not be verified")
	case errors.Is(err, auth.ErrInvalidToken):
		apierrors.Unauthorized(c, "Invalid or expired credential")
	case errors.Is(err, services.ErrInvalidClaim):
		apierrors.Respond(c, http.StatusBadRequest, apierrors.ErrCodeInvalidClaim, err.Error())
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrCannotRemoveOwner):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotAMember):
		apierrors.Respond(c, http.StatusForbidden, apierrors.ErrCodeNotAMember, "You are not a member of this group")
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInviteNotFound):
		apierrors.Respond(c, http.StatusNotFound, apierrors.ErrCodeInviteNotFound, "Invite not found")
	case errors.Is(err, services.ErrInviteAlreadyDecided):
		apierrors.Respond(c, http.StatusConflict, apierrors.ErrCodeInviteAlreadyDecided, "Invite has already been handled")
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated):
		apierrors.Respond(c, http.StatusUnprocessableEntity, apierrors.ErrCodeInvalidInput, err.Error())
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "")
	}
}

// currentUserID returns the authenticated user or responds 401.
func currentUserID(c *gin.Context) (uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return userID, exists
}

// uintParam parses a numeric path parameter or responds 400.
func uintParam(c *gin.Context, name, label string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+label)
		return 0, false
	}
	return id, true
}
