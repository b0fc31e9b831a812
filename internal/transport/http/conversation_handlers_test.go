package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, env *testEnv, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	env.ts.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, env, http.MethodPost, "/api/register", "", RegisterRequest{
		Username: "Alice", DisplayName: "Alice A", Password: "pass123",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = doJSON(t, env, http.MethodPost, "/api/register", "", RegisterRequest{
		Username: "alice", DisplayName: "Other", Password: "pass123",
	})
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(t, env, http.MethodPost, "/api/register", "", RegisterRequest{
		Username: "bad name", DisplayName: "Bad", Password: "pass123",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, env, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "pass123"})
	require.Equal(t, http.StatusOK, resp.Code)
	var auth AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.Token)

	resp = doJSON(t, env, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestConversationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	aliceToken, _ := env.registerUser(t, "alice")
	env.registerUser(t, "bob")

	// Without token
	resp := doJSON(t, env, http.MethodPost, "/api/conversations", "", CreateConversationRequest{Username: "bob"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(t, env, http.MethodPost, "/api/conversations", aliceToken, CreateConversationRequest{Username: "bob"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created ConversationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Equal(t, "bob", created.RecipientUsername)
	require.Equal(t, "BOB", created.RecipientDisplayName)

	resp = doJSON(t, env, http.MethodPost, "/api/conversations", aliceToken, CreateConversationRequest{Username: "bob"})
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(t, env, http.MethodPost, "/api/conversations", aliceToken, CreateConversationRequest{Username: "alice"})
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(t, env, http.MethodPost, "/api/conversations", aliceToken, CreateConversationRequest{Username: "ghost"})
	require.Equal(t, http.StatusNotFound, resp.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, "User 'ghost' doesn't exist", errResp.Error)

	resp = doJSON(t, env, http.MethodGet, "/api/conversations?cursor=0", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []ConversationResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, created.ConversationID, list[0].ConversationID)

	resp = doJSON(t, env, http.MethodGet, "/api/conversations?cursor=abc", aliceToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	token, alice := env.registerUser(t, "alice")

	resp := doJSON(t, env, http.MethodGet, "/api/users/alice", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var profile ProfileResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	require.Equal(t, alice.UserID, profile.UserID)
	require.Equal(t, "ALICE", profile.DisplayName)

	resp = doJSON(t, env, http.MethodGet, "/api/users/ghost", token, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOwnProfile(t *testing.T) {
	env := newTestEnv(t)
	token, alice := env.registerUser(t, "alice")

	resp := doJSON(t, env, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var profile ProfileResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	require.Equal(t, alice.UserID, profile.UserID)
	require.Equal(t, "alice", profile.Username)

	resp = doJSON(t, env, http.MethodPatch, "/api/users/me", token, UpdateProfileRequest{DisplayName: "Alice A"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	require.Equal(t, "Alice A", profile.DisplayName)

	resp = doJSON(t, env, http.MethodGet, "/api/users/alice", token, nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &profile))
	require.Equal(t, "Alice A", profile.DisplayName)

	resp = doJSON(t, env, http.MethodPatch, "/api/users/me", token, UpdateProfileRequest{DisplayName: "Alice#"})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, env, http.MethodGet, "/api/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
