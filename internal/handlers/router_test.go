package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestNewRouter_DefaultMounts(t *testing.T) {
	router := NewRouter()

	cases := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"readyz without probes", http.MethodGet, "/readyz", http.StatusOK},
		{"unwired group", http.MethodGet, "/api/v1/bookings", http.StatusNotImplemented},
		{"unwired realtime", http.MethodGet, "/api/v1/realtime", http.StatusNotImplemented},
		{"unknown route", http.MethodGet, "/api/v2/orders", http.StatusNotFound},
		{"metrics disabled", http.MethodGet, "/metrics", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestNewRouter_MountsRegistrars(t *testing.T) {
	var internalMiddlewareCalled bool
	marker := func(name string) RouteRegistrar {
		return func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-Group", name)
				w.WriteHeader(http.StatusNoContent)
			})
		}
	}

	router := NewRouter(
		WithProductRoutes(marker("products")),
		WithCartRoutes(marker("cart")),
		WithOrderRoutes(marker("orders")),
		WithBookingRoutes(marker("bookings")),
		WithNotificationRoutes(marker("notifications")),
		WithMessageRoutes(marker("messages")),
		WithAdminRoutes(marker("admin")),
		WithWebhookRoutes(marker("webhooks")),
		WithInternalRoutes(marker("internal")),
		WithInternalMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				internalMiddlewareCalled = true
				next.ServeHTTP(w, r)
			})
		}),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# HELP orders_sweeper_expired_total\n"))
		})),
		WithRealtimeHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusSwitchingProtocols)
		})),
	)

	for _, group := range []string{"products", "cart", "orders", "bookings", "notifications", "messages", "admin", "webhooks", "internal"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/"+group, nil))
		if rr.Code != http.StatusNoContent || rr.Header().Get("X-Group") != group {
			t.Fatalf("group %s: expected 204 with marker, got %d %q", group, rr.Code, rr.Header().Get("X-Group"))
		}
	}
	if !internalMiddlewareCalled {
		t.Fatalf("expected internal middleware to run")
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/realtime", nil))
	if rr.Code != http.StatusSwitchingProtocols {
		t.Fatalf("expected realtime handler, got %d", rr.Code)
	}
}
