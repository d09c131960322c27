package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/models"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// RequireGroupMember checks that the user belongs to the group in the :id
// parameter and stores the membership in the context
func RequireGroupMember(membership *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid group ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		member, err := membership.RequireMember(c.Request.Context(), userID, groupID)
		if err != nil {
			if errors.Is(err, services.ErrNotAMember) {
				apierrors.Respond(c, http.StatusForbidden, apierrors.ErrCodeNotAMember, "You are not a member of this group")
				return
			}
			slog.Error("membership check failed", "group_id", groupID, "user_id", userID, "error", err)
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyGroupID, groupID)
		c.Set(constants.ContextKeyMembership, *member)
		c.Next()
	}
}

// GetGroupID returns the group ID stored by RequireGroupMember
func GetGroupID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyGroupID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// GetMembership returns the membership stored by RequireGroupMember
func GetMembership(c *gin.Context) (models.Membership, bool) {
	v, exists := c.Get(constants.ContextKeyMembership)
	if !exists {
		return models.Membership{}, false
	}
	member, ok := v.(models.Membership)
	return member, ok
}
