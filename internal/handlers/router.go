package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campverse/api/internal/platform/httpx"
)

// RouteRegistrar adds one resource's routes to its group router.
type RouteRegistrar func(r chi.Router)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

// routeGroups fixes the order and names of the mounted groups. A group
// without a registrar answers 501 so clients can tell it from a typo.
var routeGroups = []string{
	"products", "cart", "orders", "bookings", "notifications", "messages", "admin", "webhooks", "internal",
}

type routeGroup struct {
	registrar   RouteRegistrar
	middlewares []func(http.Handler) http.Handler
}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	metrics     http.Handler
	realtime    http.Handler
	groups      map[string]*routeGroup
}

type Option func(*routerConfig)

func (cfg *routerConfig) group(name string) *routeGroup {
	if cfg.groups == nil {
		cfg.groups = make(map[string]*routeGroup, len(routeGroups))
	}
	g, ok := cfg.groups[name]
	if !ok {
		g = &routeGroup{}
		cfg.groups[name] = g
	}
	return g
}

// NewRouter builds the API router. Probes and /metrics live at the root;
// everything else is under /api/v1 with a request timeout, except the
// websocket endpoint which stays open for the life of the connection.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{middlewares: []func(http.Handler) http.Handler{middleware.RequestID, middleware.RealIP}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed",
			fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	r.Route(apiPrefix, func(api chi.Router) {
		if cfg.realtime != nil {
			api.Method(http.MethodGet, "/realtime", cfg.realtime)
		} else {
			api.HandleFunc("/realtime", notImplemented("realtime"))
		}

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(requestTimeout))
			for _, name := range routeGroups {
				g := cfg.groups[name]
				timed.Route("/"+name, func(sub chi.Router) {
					if g == nil || g.registrar == nil {
						stub := notImplemented(name)
						sub.HandleFunc("/", stub)
						sub.HandleFunc("/*", stub)
						return
					}
					for _, mw := range g.middlewares {
						if mw != nil {
							sub.Use(mw)
						}
					}
					g.registrar(sub)
				})
			}
		})
	})
	return r
}

func notImplemented(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" routes not implemented", http.StatusNotImplemented))
	}
}

// WithMiddlewares appends global middleware after RequestID and RealIP.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) { cfg.middlewares = append(cfg.middlewares, mw...) }
}

func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) { cfg.health = h }
}

// WithMetricsHandler serves the Prometheus scrape endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(cfg *routerConfig) { cfg.metrics = h }
}

// WithRealtimeHandler mounts the websocket gateway. h authenticates the
// caller itself.
func WithRealtimeHandler(h http.Handler) Option {
	return func(cfg *routerConfig) { cfg.realtime = h }
}

func withRoutes(name string, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.group(name).registrar = reg }
}

func WithProductRoutes(reg RouteRegistrar) Option      { return withRoutes("products", reg) }
func WithCartRoutes(reg RouteRegistrar) Option         { return withRoutes("cart", reg) }
func WithOrderRoutes(reg RouteRegistrar) Option        { return withRoutes("orders", reg) }
func WithBookingRoutes(reg RouteRegistrar) Option      { return withRoutes("bookings", reg) }
func WithNotificationRoutes(reg RouteRegistrar) Option { return withRoutes("notifications", reg) }
func WithMessageRoutes(reg RouteRegistrar) Option      { return withRoutes("messages", reg) }
func WithAdminRoutes(reg RouteRegistrar) Option        { return withRoutes("admin", reg) }
func WithWebhookRoutes(reg RouteRegistrar) Option      { return withRoutes("webhooks", reg) }
func WithInternalRoutes(reg RouteRegistrar) Option     { return withRoutes("internal", reg) }

// WithInternalMiddlewares guards /internal, typically with OIDC verification
// of the scheduler's service account.
func WithInternalMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		g := cfg.group("internal")
		g.middlewares = append(g.middlewares, mw...)
	}
}
