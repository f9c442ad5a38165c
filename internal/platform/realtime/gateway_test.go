package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campverse/api/internal/platform/auth"
)

type typingRecorder struct {
	mu     sync.Mutex
	frames []ClientFrame
	users  []string
	seen   chan struct{}
}

func (r *typingRecorder) handle(_ context.Context, userID string, frame ClientFrame) error {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.users = append(r.users, userID)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return nil
}

func newGatewayServer(t *testing.T, broker Broker, uid string, onClient ClientEventHandler) *httptest.Server {
	t.Helper()
	gateway, err := NewGateway(GatewayOptions{Broker: broker, OnClientEvent: onClient, PingInterval: time.Second})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid != "" {
			r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UID: uid}))
		}
		gateway.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGatewayStreamsUserChannel(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	server := newGatewayServer(t, broker, "camper-1", nil)

	conn := dial(t, server)

	require.NoError(t, NewPusher(broker).PushToUser(context.Background(), "camper-1", EventNewNotification, map[string]string{"title": "Order shipped"}))
	require.NoError(t, NewPusher(broker).PushToUser(context.Background(), "someone-else", EventNewNotification, map[string]string{"title": "nope"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, EventNewNotification, frame["event"])
	assert.Equal(t, map[string]any{"title": "Order shipped"}, frame["data"])
}

func TestGatewayForwardsClientFrames(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	recorder := &typingRecorder{seen: make(chan struct{}, 1)}
	server := newGatewayServer(t, broker, "camper-2", recorder.handle)

	conn := dial(t, server)
	require.NoError(t, conn.WriteJSON(ClientFrame{Event: EventUserTyping, To: "support-1"}))

	select {
	case <-recorder.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("client frame was not forwarded")
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, []string{"camper-2"}, recorder.users)
	assert.Equal(t, "support-1", recorder.frames[0].To)
}

func TestGatewayReleasesSubscriptionOnDisconnect(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	server := newGatewayServer(t, broker, "camper-3", nil)

	conn := dial(t, server)
	assert.Equal(t, 1, broker.Subscribers("user:camper-3"))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return broker.Subscribers("user:camper-3") == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestGatewayRejectsAnonymous(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	server := newGatewayServer(t, broker, "", nil)

	resp, err := http.Get(server.URL + "/realtime")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.campverse.vn/"})

	req := httptest.NewRequest(http.MethodGet, "/realtime", nil)
	assert.True(t, check(req), "missing origin is allowed")

	req.Header.Set("Origin", "https://APP.campverse.vn")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
