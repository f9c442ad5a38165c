package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/platform/requestctx"
	"github.com/campverse/api/internal/repositories"
	"github.com/campverse/api/internal/services"
)

const defaultMaxBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads and decodes a JSON body, writing the error response itself when it
// returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return false
	}
	return true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
		return pagination.Params{}, false
	}
	return params, true
}

type serviceErrorMapping struct {
	target error
	code   string
	status int
}

var serviceErrorMappings = []serviceErrorMapping{
	{services.ErrOrderNotFound, "order_not_found", http.StatusNotFound},
	{services.ErrBookingNotFound, "booking_not_found", http.StatusNotFound},
	{services.ErrNotificationNotFound, "notification_not_found", http.StatusNotFound},
	{services.ErrProductNotFound, "product_not_found", http.StatusNotFound},
	{services.ErrCartProductNotFound, "product_not_found", http.StatusNotFound},
	{services.ErrOrderOutOfStock, "out_of_stock", http.StatusConflict},
	{services.ErrOrderInvalidTransition, "invalid_transition", http.StatusConflict},
	{services.ErrBookingInvalidTransition, "invalid_transition", http.StatusConflict},
	{services.ErrBookingNoSeats, "no_seats", http.StatusConflict},
	{services.ErrOrderRefundNotAllowed, "refund_not_allowed", http.StatusConflict},
	{services.ErrOrderPaymentFailed, "payment_failed", http.StatusConflict},
	{services.ErrOrderConflict, "order_conflict", http.StatusConflict},
	{services.ErrBookingCodeExhausted, "booking_code_unavailable", http.StatusServiceUnavailable},
}

var validationSentinels = []error{
	services.ErrOrderValidation,
	services.ErrBookingValidation,
	services.ErrNotificationValidation,
	services.ErrCartValidation,
	services.ErrMessageValidation,
}

// writeServiceError renders a service failure. Unclassified errors are logged with the
// request logger and rendered as a generic 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if fields := services.ValidationFields(err); len(fields) > 0 {
		httpx.WriteError(ctx, w, httpx.ValidationError("validation failed", fields))
		return
	}
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			httpx.WriteError(ctx, w, httpx.ValidationError("validation failed", []string{err.Error()}))
			return
		}
	}
	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			httpErr := httpx.NewError(mapping.code, err.Error(), mapping.status)
			if stockErr, ok := repositories.AsStockError(err); ok {
				httpErr = httpErr.WithDetails(map[string]any{
					"productId": stockErr.ProductID,
					"requested": stockErr.Requested,
					"available": stockErr.Available,
				})
			}
			httpx.WriteError(ctx, w, httpErr)
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	requestctx.Logger(ctx).Error("request failed", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.InternalError())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type handlerOptions struct {
	create []func(http.Handler) http.Handler
}

// HandlerOption customises resource handlers.
type HandlerOption func(*handlerOptions)

// WithCreateMiddleware wraps the resource's create endpoint, typically with the
// idempotency middleware.
func WithCreateMiddleware(mw ...func(http.Handler) http.Handler) HandlerOption {
	return func(o *handlerOptions) {
		for _, m := range mw {
			if m != nil {
				o.create = append(o.create, m)
			}
		}
	}
}

func collectHandlerOptions(opts []HandlerOption) handlerOptions {
	var out handlerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}
