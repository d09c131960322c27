package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/dto"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/middleware"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
)

// GroupHandler serves groups, their members and owner-issued invites.
type GroupHandler struct {
	membership *services.MembershipService
	invites    *services.InviteService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(membership *services.MembershipService, invites *services.InviteService) *GroupHandler {
	return &GroupHandler{
		membership: membership,
		invites:    invites,
	}
}

// ListGroups returns every group the user belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summaries, err := h.membership.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	groups := make([]dto.GroupSummaryDTO, len(summaries))
	for i, s := range summaries {
		groups[i] = dto.ToGroupSummaryDTO(s)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"groups": groups,
	})
}

// CreateGroup creates a group owned by the user.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	group, err := h.membership.CreateGroup(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":    true,
		"group": dto.ToGroupDTO(*group),
	})
}

// ListMembers lists the members of the group. Requires RequireGroupMember.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	members, err := h.membership.ListMembers(c.Request.Context(), userID, groupID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.MemberDTO, len(members))
	for i, m := range members {
		items[i] = dto.ToMemberDTO(m, m.Group.OwnerID)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"members": items,
	})
}

// UpdateMember changes a member's capability flags.
func (h *GroupHandler) UpdateMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)
	memberID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	member, err := h.membership.UpdateCapabilities(c.Request.Context(), userID, groupID, memberID, services.CapabilityPatch{
		CanTasks:   req.CanTasks,
		CanFinance: req.CanFinance,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"member": member,
	})
}

// RemoveMember removes a member, or lets a member leave.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)
	memberID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	if err := h.membership.RemoveMember(c.Request.Context(), userID, groupID, memberID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreateLinkInvite issues a single-use invite link for the group.
func (h *GroupHandler) CreateLinkInvite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	invite, err := h.invites.CreateTokenInvite(c.Request.Context(), userID, groupID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	link := ""
	if invite.Token != nil {
		link = h.invites.InviteLink(*invite.Token)
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":     true,
		"invite": dto.ToInviteDTO(*invite, link),
	})
}

// CreateHandleInvite invites a Telegram handle. Repeating the call while the
// invite is pending returns the existing invite with 200.
func (h *GroupHandler) CreateHandleInvite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	var req dto.HandleInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	invite, created, err := h.invites.CreateHandleInvite(c.Request.Context(), userID, groupID, req.Username)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"ok":      true,
		"created": created,
		"invite":  dto.ToInviteDTO(*invite, ""),
	})
}
