package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"circle-service/internal/repositories"
	"circle-service/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	audit     *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo, userRepo: userRepo, audit: audit}
}

// CreateGroup handles POST /groups. The founder is always a member; the
// group must start with at least one other member.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.MemberIDs) > 0 {
		users, err := h.userRepo.BulkUsers(c.Request.Context(), req.MemberIDs)
		if err != nil || len(users) != len(dedupe(req.MemberIDs)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown member ids"})
			return
		}
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		if errors.Is(err, repositories.ErrTooFewMembers) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group needs at least two members"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// ListMembers returns the group's members, visible to members only.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	members, err := h.groupRepo.Members(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMembers invites more users; any member may invite.
func (h *GroupHandler) AddMembers(c *gin.Context) {
	groupID, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	var req struct {
		MemberIDs []int `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), req.MemberIDs)
	if err != nil || len(users) != len(dedupe(req.MemberIDs)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown member ids"})
		return
	}

	if err := h.groupRepo.AddMembers(c.Request.Context(), groupID, req.MemberIDs); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add members"})
		return
	}

	h.emitAudit(c, "INFO", "Group members added")
	c.Status(http.StatusNoContent)
}

// LeaveGroup removes the caller from the group. Members can remove only
// themselves; there is no kick.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID, userID, ok := h.requireMember(c)
	if !ok {
		return
	}

	if err := h.groupRepo.RemoveMember(c.Request.Context(), groupID, userID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not a member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave group"})
		return
	}

	h.emitAudit(c, "INFO", "Group member left")
	c.Status(http.StatusNoContent)
}

// DeleteGroup removes the group entirely; owner only.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	userID := c.GetInt("userID")
	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}
	if group.OwnerID != userID {
		h.emitAudit(c, "ERROR", "not allowed to delete group")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner may delete the group"})
		return
	}

	if err := h.groupRepo.DeleteGroup(c.Request.Context(), groupID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete group"})
		return
	}

	h.emitAudit(c, "INFO", "Group deleted")
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) requireMember(c *gin.Context) (int, int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, 0, false
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return 0, 0, false
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return 0, 0, false
	}
	return groupID, userID, true
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func dedupe(ids []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
