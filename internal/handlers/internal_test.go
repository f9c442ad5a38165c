package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/services"
)

func TestInternalHandlers_SweepOrders(t *testing.T) {
	sweeper := &stubSweeper{result: services.SweepResult{Scanned: 4, Expired: 3, Failed: 1}}
	r := chi.NewRouter()
	r.Route("/internal", NewInternalHandlers(sweeper).Routes)

	req := httptest.NewRequest(http.MethodPost, "/internal/orders:sweep", nil)
	req = req.WithContext(auth.WithServiceIdentity(req.Context(), &auth.ServiceIdentity{Email: "scheduler@campverse.iam.gserviceaccount.com"}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
	env := decodeEnvelope(t, rr)
	var data map[string]int
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["expired"] != 3 || data["failed"] != 1 || data["scanned"] != 4 {
		t.Fatalf("unexpected result %v", data)
	}
}

func TestInternalHandlers_SweepFailure(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("list expired: deadline exceeded")}
	r := chi.NewRouter()
	r.Route("/internal", NewInternalHandlers(sweeper).Routes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/internal/orders:sweep", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Message == "list expired: deadline exceeded" {
		t.Fatalf("internal error detail must not leak")
	}
}
