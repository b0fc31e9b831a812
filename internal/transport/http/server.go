package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/bitter-server/internal/auth"
	"github.com/vovakirdan/bitter-server/internal/config"
	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/service/chat"
)

// NewServer builds the HTTP server: REST API under /api and the realtime
// endpoint at /ws. The websocket handler is mounted on the mux directly so gin's
// response writer never sees the upgrade.
func NewServer(hub *core.Hub, authService *auth.Service, chatService *chat.Service, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	ws := NewWSHandler(hub, authService, WSOptions{
		MaxMessageBytes:    cfg.MaxMessageBytes,
		SendQueueSize:      cfg.SendQueueSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(chatService, logger)
	conversationHandlers := NewConversationHandlers(chatService, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	protected.GET("/users/me", userHandlers.GetOwnProfile)
	protected.PATCH("/users/me", userHandlers.UpdateOwnProfile)
	protected.GET("/users/:username", userHandlers.GetProfile)
	protected.POST("/conversations", conversationHandlers.CreateConversation)
	protected.GET("/conversations", conversationHandlers.ListConversations)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
