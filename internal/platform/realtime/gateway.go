package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/requestctx"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	maxClientFrameBytes = 4096
)

// ClientEventHandler reacts to frames sent by a connected user.
type ClientEventHandler func(ctx context.Context, userID string, frame ClientFrame) error

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Broker         Broker
	Logger         *zap.Logger
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OnClientEvent  ClientEventHandler
}

// Gateway upgrades authenticated requests to websockets and streams the
// caller's user channel to them.
type Gateway struct {
	broker       Broker
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	onClient     ClientEventHandler
	active       atomic.Int64
}

// NewGateway validates options and builds the gateway.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.Broker == nil {
		return nil, errors.New("realtime: broker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		broker:       opts.Broker,
		logger:       logger,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		onClient:     opts.OnClientEvent,
	}
	if g.writeTimeout <= 0 {
		g.writeTimeout = defaultWriteTimeout
	}
	if g.pingInterval <= 0 {
		g.pingInterval = defaultPingInterval
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return g, nil
}

// ActiveConnections reports the number of open sockets on this instance.
func (g *Gateway) ActiveConnections() int64 {
	return g.active.Load()
}

// ServeHTTP expects auth middleware to have placed an Identity on the context.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	// Subscribe before the upgrade completes so no frame published after the
	// handshake is lost.
	sub, err := g.broker.Subscribe(r.Context(), UserChannel(identity.UID))
	if err != nil {
		requestctx.Logger(r.Context()).Error("realtime subscribe failed", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("realtime_unavailable", "realtime service unavailable", http.StatusServiceUnavailable))
		return
	}
	defer sub.Close()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error response.
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := g.logger.With(zap.String("conn_id", connID), zap.String("user_id", identity.UID))
	g.active.Add(1)
	defer g.active.Add(-1)
	logger.Debug("realtime connection opened")

	// Detach from the request deadline; the socket lives until either pump exits.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return g.readPump(ctx, conn, identity.UID, logger) })
	group.Go(func() error { return g.writePump(ctx, conn, sub) })

	if err := group.Wait(); err != nil && !isExpectedClose(err) {
		logger.Debug("realtime connection closed", zap.Error(err))
	}
}

func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn, userID string, logger *zap.Logger) error {
	conn.SetReadLimit(maxClientFrameBytes)
	deadline := g.pingInterval * 2
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(deadline))

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug("realtime client frame ignored", zap.Error(err))
			continue
		}
		if g.onClient == nil {
			continue
		}
		if err := g.onClient(ctx, userID, frame); err != nil {
			logger.Warn("realtime client event failed", zap.String("event", frame.Event), zap.Error(err))
		}
	}
}

// writePump owns closing the socket, which in turn unblocks readPump.
func (g *Gateway) writePump(ctx context.Context, conn *websocket.Conn, sub Subscription) error {
	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(g.writeTimeout))
			return ctx.Err()
		case payload, ok := <-sub.Messages():
			if !ok {
				return errors.New("realtime: subscription closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(g.writeTimeout)); err != nil {
				return err
			}
		}
	}
}

func isExpectedClose(err error) bool {
	return errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
