package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/messageme/messageme-server/internal/store"
)

// GroupHandlers provides HTTP handlers for group management endpoints.
type GroupHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		store: st,
		log:   logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	MemberCount int            `json:"member_count"`
	CreatedAt   string         `json:"created_at"`
	Members     []UserResponse `json:"members,omitempty"`
}

// CreateGroup handles group creation.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_name", group.Name).Int64("group_id", group.ID).Msg("group created")
	c.JSON(http.StatusCreated, GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		CreatedAt:   group.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ListGroups handles listing groups with member counts.
// GET /api/groups?search=query
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))

	groups, err := h.store.ListGroups(c.Request.Context(), search)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupResponse, 0, len(groups))
	for _, group := range groups {
		count, err := h.store.CountGroupMembers(c.Request.Context(), group.ID)
		if err != nil {
			h.log.Error().Err(err).Int64("group_id", group.ID).Msg("failed to count group members")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		response = append(response, GroupResponse{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			MemberCount: count,
			CreatedAt:   group.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"groups": response})
}

// GetGroup handles fetching a single group with its member list.
// GET /api/groups/:id
func (h *GroupHandlers) GetGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	group, err := h.store.GetGroupByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
			return
		}
		h.log.Error().Err(err).Int64("group_id", id).Msg("failed to get group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	members, err := h.store.ListGroupMembers(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", id).Msg("failed to list group members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	memberResponses := make([]UserResponse, 0, len(members))
	for _, m := range members {
		memberResponses = append(memberResponses, userResponse(m))
	}

	c.JSON(http.StatusOK, GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		MemberCount: len(members),
		CreatedAt:   group.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Members:     memberResponses,
	})
}

// JoinGroup handles adding the authenticated user to a group.
// POST /api/groups/:id/members
func (h *GroupHandlers) JoinGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	if _, err := h.store.GetGroupByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
			return
		}
		h.log.Error().Err(err).Int64("group_id", id).Msg("failed to get group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddGroupMember(c.Request.Context(), id, uid); err != nil {
		h.log.Error().Err(err).Int64("group_id", id).Int64("user_id", uid).Msg("failed to add group member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("group_id", id).Int64("user_id", uid).Msg("user joined group")
	c.JSON(http.StatusOK, gin.H{"message": "joined group"})
}

// LeaveGroup handles removing the authenticated user from a group.
// DELETE /api/groups/:id/members
func (h *GroupHandlers) LeaveGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	if err := h.store.RemoveGroupMember(c.Request.Context(), id, uid); err != nil {
		h.log.Error().Err(err).Int64("group_id", id).Int64("user_id", uid).Msg("failed to remove group member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("group_id", id).Int64("user_id", uid).Msg("user left group")
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}
