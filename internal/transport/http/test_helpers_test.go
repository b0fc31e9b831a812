package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/bitter-server/internal/auth"
	"github.com/vovakirdan/bitter-server/internal/config"
	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/proto"
	"github.com/vovakirdan/bitter-server/internal/service/chat"
	"github.com/vovakirdan/bitter-server/internal/store"
	"github.com/vovakirdan/bitter-server/internal/store/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	ts    *httptest.Server
	store store.Store
	auth  *auth.Service
	chat  *chat.Service
	hub   *core.Hub
	cfg   config.Config
}

// newTestEnv wires an in-memory store, services and hub behind an httptest server.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	for _, m := range mutate {
		m(&cfg)
	}

	disabledLogger := zerolog.New(nil)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}, &disabledLogger)
	chatService := chat.New(st, chat.Options{}, &disabledLogger)
	hub := core.NewHub(chatService, &disabledLogger)

	server := NewServer(hub, authService, chatService, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, auth: authService, chat: chatService, hub: hub, cfg: cfg}
}

// registerUser creates an account and returns its token and caller identity.
func (e *testEnv) registerUser(t *testing.T, username string) (string, core.Caller) {
	t.Helper()

	token, err := e.auth.Register(context.Background(), username, strings.ToUpper(username), "pass123")
	require.NoError(t, err)
	claims, err := e.auth.ValidateToken(token)
	require.NoError(t, err)
	return token, core.Caller{UserID: claims.UserID, Username: claims.Username}
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

func (e *testEnv) dial(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL()+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// rawOutbound keeps Data undecoded so tests can pick the payload type.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}))
}

func read(ctx context.Context, t *testing.T, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	require.NoError(t, wsjson.Read(ctx, conn, &out))
	return out
}
