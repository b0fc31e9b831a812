package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/bitter-server/internal/service/chat"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(chatService *chat.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		chat: chatService,
		log:  logger,
	}
}

// ProfileResponse represents a user in API responses.
type ProfileResponse struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	DateCreated int64  `json:"date_created"`
}

// UpdateProfileRequest changes the caller's display name.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

func profileResponse(profile *chat.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:      profile.ID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		DateCreated: profile.CreatedAt.Unix(),
	}
}

// GetOwnProfile returns the authenticated user's profile.
// GET /api/users/me
func (h *UserHandlers) GetOwnProfile(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		h.log.Error().Msg("caller not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	profile, err := h.chat.GetOwnProfile(c.Request.Context(), caller)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse(profile))
}

// UpdateOwnProfile sets the authenticated user's display name.
// PATCH /api/users/me
func (h *UserHandlers) UpdateOwnProfile(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		h.log.Error().Msg("caller not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	profile, err := h.chat.UpdateDisplayName(c.Request.Context(), caller, req.DisplayName)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse(profile))
}

// GetProfile returns a user's public profile.
// GET /api/users/:username
func (h *UserHandlers) GetProfile(c *gin.Context) {
	profile, err := h.chat.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse(profile))
}
