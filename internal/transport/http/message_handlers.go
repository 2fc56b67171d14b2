package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/messageme/messageme-server/internal/store"
)

// MessageHandlers provides HTTP handlers for message history endpoints.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// MessageResponse represents a persisted message in API responses.
type MessageResponse struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	IsRead      bool   `json:"is_read"`
	IsMine      bool   `json:"is_mine"`
}

func messageResponse(m *store.Message, viewerID int64) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Timestamp:   m.Timestamp.UTC().Format(time.RFC3339),
		IsRead:      m.IsRead,
		IsMine:      m.SenderID == viewerID,
	}
}

// SendMessageRequest is the payload for sending a message over REST.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

// SendMessage handles sending a direct message over REST. The realtime
// path stays on the websocket; this endpoint persists only.
// POST /api/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.RecipientID == 0 || req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipient_id and content are required"})
		return
	}
	if req.RecipientID == uid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot message yourself"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.RecipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "recipient not found"})
			return
		}
		h.log.Error().Err(err).Int64("recipient_id", req.RecipientID).Msg("failed to get recipient")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg, err := h.store.SaveDirectMessage(c.Request.Context(), uid, req.RecipientID, req.Content)
	if err != nil {
		h.log.Error().Err(err).Int64("sender_id", uid).Int64("recipient_id", req.RecipientID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "message sent",
		"data":    messageResponse(msg, uid),
	})
}

// ListMessages handles listing all messages involving the caller.
// GET /api/messages?days=30
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid days parameter"})
			return
		}
		days = parsed
	}

	messages, err := h.store.ListMessagesForUser(c.Request.Context(), uid, days)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, messageResponse(m, uid))
	}

	c.JSON(http.StatusOK, gin.H{"messages": response})
}

// GetConversation handles fetching the conversation with another user.
// Messages from the other user are flagged read as a side effect.
// GET /api/users/:id/messages
func (h *MessageHandlers) GetConversation(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	otherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	other, err := h.store.GetUserByID(c.Request.Context(), otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", otherID).Msg("failed to get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages, err := h.store.ListConversation(c.Request.Context(), uid, otherID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("other_id", otherID).Msg("failed to list conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.MarkConversationRead(c.Request.Context(), uid, otherID); err != nil {
		// Read flags are best-effort; the conversation itself is intact.
		h.log.Warn().Err(err).Int64("user_id", uid).Int64("other_id", otherID).Msg("failed to mark conversation read")
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, messageResponse(m, uid))
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_with": userResponse(other),
		"messages":          response,
	})
}

// DeleteMessage handles deleting a message. Only the sender may delete.
// DELETE /api/messages/:id
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	if err := h.store.DeleteMessage(c.Request.Context(), id, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		if errors.Is(err, store.ErrNotSender) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "unauthorized"})
			return
		}
		h.log.Error().Err(err).Int64("message_id", id).Msg("failed to delete message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("message_id", id).Int64("user_id", uid).Msg("message deleted")
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}
