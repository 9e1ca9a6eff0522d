package in_ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivikagarg999/sheduled-backend/internal/shared/auth"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/config"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/logger"
	"github.com/Shivikagarg999/sheduled-backend/internal/shared/ws"
	"github.com/Shivikagarg999/sheduled-backend/internal/tracking/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind      string
	connID    string
	event     string
	principal domain.Principal
}

type fakeRouter struct {
	mu    sync.Mutex
	calls []call
	done  chan struct{}
}

func (f *fakeRouter) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeRouter) Connect(connID string, p domain.Principal) {
	f.record(call{kind: "connect", connID: connID, principal: p})
}

func (f *fakeRouter) Handle(_ context.Context, connID, event string, _ json.RawMessage) error {
	f.record(call{kind: "handle", connID: connID, event: event})
	return nil
}

func (f *fakeRouter) Disconnect(ctx context.Context, connID string) {
	f.record(call{kind: "disconnect", connID: connID})
	if ctx.Err() == nil {
		close(f.done)
	}
}

func (f *fakeRouter) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestTrackingWSLifecycle(t *testing.T) {
	log := logger.NewLoggerWithWriter("in-ws-test", logger.LevelError, io.Discard)
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 5})
	token, err := jwtSvc.GenerateToken("d1", "d1@sheduled.com", auth.RoleDriver)
	require.NoError(t, err)

	// базовый контекст уже отменен: Disconnect все равно получает живой ctx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	router := &fakeRouter{done: make(chan struct{})}
	hub := ws.NewHub(NewAuthFunc(jwtSvc), nil, log)
	h := NewTrackingWSHandler(ctx, hub, router, log)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "driver-authenticate", "data": map[string]string{"driverId": "d1"}}))
	require.Eventually(t, func() bool { return len(router.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case <-router.done:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not delivered to router")
	}

	calls := router.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, "connect", calls[0].kind)
	assert.Equal(t, domain.Principal{UserID: "d1", Role: auth.RoleDriver}, calls[0].principal)
	assert.Equal(t, call{kind: "handle", connID: calls[0].connID, event: "driver-authenticate"}, calls[1])
	assert.Equal(t, call{kind: "disconnect", connID: calls[0].connID}, calls[2])
}

func TestAuthFuncRejectsUnknownRole(t *testing.T) {
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryMinutes: 5})
	authFn := NewAuthFunc(jwtSvc)

	token, err := jwtSvc.GenerateToken("x", "x@sheduled.com", "PASSENGER")
	require.NoError(t, err)
	_, _, err = authFn(token)
	assert.ErrorContains(t, err, "invalid role")

	_, _, err = authFn("garbage")
	assert.Error(t, err)

	token, err = jwtSvc.GenerateToken("a1", "a@sheduled.com", auth.RoleAdmin)
	require.NoError(t, err)
	id, role, err := authFn(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
	assert.Equal(t, auth.RoleAdmin, role)
}
