package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/bitter-server/internal/auth"
	"github.com/vovakirdan/bitter-server/internal/config"
	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/service/chat"
	"github.com/vovakirdan/bitter-server/internal/store"
	"github.com/vovakirdan/bitter-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/bitter-server/internal/transport/http"
)

// App wires together storage, services, the realtime hub and transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger

	// closeConns cancels the base context of every request, which ends
	// hijacked websocket sessions that Shutdown does not track.
	closeConns context.CancelFunc
}

// New constructs the application with provided configuration and makes sure
// the admin account exists.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig, logger)

	if err := authService.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	chatService := chat.New(st, chat.Options{
		MessagePageSize:      cfg.MessagePageSize,
		ConversationPageSize: cfg.ConversationPageSize,
	}, logger)
	hub := core.NewHub(chatService, logger)
	server := transporthttp.NewServer(hub, authService, chatService, cfg, logger)

	baseCtx, closeConns := context.WithCancel(context.Background())
	server.BaseContext = func(net.Listener) context.Context { return baseCtx }

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
		closeConns:      closeConns,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run listens on the configured address and serves until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		a.cleanup()
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln and blocks until context cancellation or
// fatal error. Realtime sessions are closed and drained before the store is
// released.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.closeConns()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Int("connections", a.hub.Connections().Len()).Msg("shutting down http server")
		shutdownErr := a.server.Shutdown(shutdownCtx)

		a.closeConns()
		a.waitForSessions(shutdownCtx)
		a.cleanup()
		if shutdownErr != nil {
			return shutdownErr
		}
		return <-serverErr
	}
}

// waitForSessions blocks until every websocket session has left the hub or
// ctx expires.
func (a *App) waitForSessions(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for a.hub.Connections().Len() > 0 {
		select {
		case <-ctx.Done():
			a.log.Warn().Int("connections", a.hub.Connections().Len()).Msg("realtime sessions still open at shutdown")
			return
		case <-ticker.C:
		}
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
