package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vovakirdan/bitter-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig, nil), st
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		username    string
		displayName string
		password    string
		want        error
	}{
		{"empty username", "  ", "Alice", "pass123", ErrInvalidUsername},
		{"username with dash", "al-ice", "Alice", "pass123", ErrInvalidUsername},
		{"username too long", "abcdefghijklmnopqrstuvwxy", "Alice", "pass123", ErrInvalidUsername},
		{"display name with symbol", "alice", "Alice#1", "pass123", ErrInvalidDisplayName},
		{"empty password", "alice", "Alice", "", ErrInvalidPassword},
		{"password with space", "alice", "Alice", "pass 123", ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.username, tt.displayName, tt.password); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegister_NormalizesUsernameAndCreatesUser(t *testing.T) {
	svc, st := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, " Alice ", "Alice Doe", "pass123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.False(t, claims.IsAdmin)

	user, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "Alice Doe", user.DisplayName)

	// Should collide because the stored username is lowercased.
	if _, err := svc.Register(ctx, "ALICE", "Other", "pass123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob", "Bob", "secret!")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "Bob", "secret!")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Username)

	_, err = svc.Login(ctx, "bob", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret!")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	svc, st := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "pass123"))
	admin, err := st.GetUserByUsername(ctx, AdminUsername)
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)
	firstHash := admin.PasswordHash

	// Same password leaves the hash alone
	require.NoError(t, svc.EnsureAdmin(ctx, "pass123"))
	admin, err = st.GetUserByUsername(ctx, AdminUsername)
	require.NoError(t, err)
	require.Equal(t, firstHash, admin.PasswordHash)

	require.NoError(t, svc.EnsureAdmin(ctx, "new-pass"))
	token, err := svc.Login(ctx, AdminUsername, "new-pass")
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.True(t, claims.IsAdmin)

	require.ErrorIs(t, svc.EnsureAdmin(ctx, "bad password"), ErrInvalidPassword)
}
