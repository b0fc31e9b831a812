package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/bitter-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("username must be 1-24 characters of letters, digits and _")
	// ErrInvalidDisplayName is returned when display name doesn't meet constraints.
	ErrInvalidDisplayName = errors.New("display name must be 1-24 characters of letters, digits, spaces and _ - @")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("password must be 1-24 characters of letters, digits and _ - @ . , ! ?")
)

// AdminUsername is the account bootstrapped by EnsureAdmin.
const AdminUsername = "admin"

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	log       *zerolog.Logger
}

// NewService creates a new authentication service. logger may be nil.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		log:       logger,
	}
}

// Register creates a new user and returns a session token.
func (s *Service) Register(ctx context.Context, username, displayName, password string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	displayName = strings.TrimSpace(displayName)
	if err := validateCredentials(credentials{Username: username, DisplayName: displayName, Password: password}); err != nil {
		return "", err
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	user, err := s.store.CreateUser(ctx, username, displayName, hashedPassword, false)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Login validates credentials and returns a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// EnsureAdmin creates the admin account, or rehashes its password when it
// no longer matches.
func (s *Service) EnsureAdmin(ctx context.Context, password string) error {
	if err := validateCredentials(credentials{Username: AdminUsername, DisplayName: "Admin", Password: password}); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}

	existing, err := s.store.GetUserByUsername(ctx, AdminUsername)
	switch {
	case err == nil:
		if ComparePassword(existing.PasswordHash, password) == nil {
			s.log.Debug().Msg("admin account up to date")
			return nil
		}
		hash, err := HashPassword(password)
		if err != nil {
			return err
		}
		if err := s.store.UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
			return fmt.Errorf("update admin password: %w", err)
		}
		s.log.Info().Msg("admin password updated")
		return nil
	case errors.Is(err, store.ErrNotFound):
		hash, err := HashPassword(password)
		if err != nil {
			return err
		}
		if _, err := s.store.CreateUser(ctx, AdminUsername, "Admin", hash, true); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		s.log.Info().Msg("admin account created")
		return nil
	default:
		return fmt.Errorf("get admin: %w", err)
	}
}
