package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/bitter-server/internal/service/chat"
)

// ConversationHandlers provides HTTP handlers for conversation endpoints.
type ConversationHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewConversationHandlers creates a new conversation handlers instance.
func NewConversationHandlers(chatService *chat.Service, logger *zerolog.Logger) *ConversationHandlers {
	return &ConversationHandlers{
		chat: chatService,
		log:  logger,
	}
}

// CreateConversationRequest represents the create conversation request body.
type CreateConversationRequest struct {
	Username string `json:"username" binding:"required"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ConversationID         int64  `json:"conversation_id"`
	DateCreated            int64  `json:"date_created"`
	RecipientUserID        int64  `json:"recipient_user_id"`
	RecipientUsername      string `json:"recipient_username"`
	RecipientDisplayName   string `json:"recipient_display_name"`
	ContainsUnseenMessages bool   `json:"contains_unseen_messages"`
}

func toConversationResponse(s chat.ConversationSummary) ConversationResponse {
	return ConversationResponse{
		ConversationID:         s.ID,
		DateCreated:            s.CreatedAt.Unix(),
		RecipientUserID:        s.RecipientUserID,
		RecipientUsername:      s.RecipientUsername,
		RecipientDisplayName:   s.RecipientDisplayName,
		ContainsUnseenMessages: s.ContainsUnseen,
	}
}

// CreateConversation opens a conversation with another user.
// POST /api/conversations
func (h *ConversationHandlers) CreateConversation(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		h.log.Error().Msg("caller not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create conversation request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	summary, err := h.chat.CreateConversation(c.Request.Context(), caller, req.Username)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	h.log.Info().
		Int64("conversation_id", summary.ID).
		Int64("user_id", caller.UserID).
		Msg("conversation created")
	c.JSON(http.StatusCreated, toConversationResponse(*summary))
}

// ListConversations returns a page of the caller's conversations.
// GET /api/conversations?cursor=0
func (h *ConversationHandlers) ListConversations(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		h.log.Error().Msg("caller not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	summaries, err := h.chat.ListConversations(c.Request.Context(), caller, c.Query("cursor"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(summaries, func(s chat.ConversationSummary, _ int) ConversationResponse {
		return toConversationResponse(s)
	}))
}
