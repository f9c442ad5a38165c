package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/requestctx"
	"github.com/campverse/api/internal/services"
)

// SweepRunner performs one unpaid order sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (services.SweepResult, error)
}

// InternalHandlers serves endpoints invoked by Cloud Scheduler.
type InternalHandlers struct {
	sweeper SweepRunner
}

// NewInternalHandlers constructs InternalHandlers.
func NewInternalHandlers(sweeper SweepRunner) *InternalHandlers {
	return &InternalHandlers{sweeper: sweeper}
}

// Routes registers the /internal endpoints. Authentication is applied by the router group.
func (h *InternalHandlers) Routes(r chi.Router) {
	r.Post("/orders:sweep", h.sweepOrders)
}

func (h *InternalHandlers) sweepOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.sweeper.RunOnce(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	caller := ""
	if identity, ok := auth.ServiceIdentityFromContext(ctx); ok {
		caller = identity.Email
	}
	requestctx.Logger(ctx).Info("order sweep triggered",
		zap.String("caller", caller),
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed))
	httpx.WriteSuccess(w, http.StatusOK, "sweep completed", map[string]int{
		"scanned": result.Scanned,
		"expired": result.Expired,
		"failed":  result.Failed,
	})
}
