package httpx

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/campverse/api/internal/platform/requestctx"
)

// Error is a failure response. It renders as
// {success:false, message, code?, errors?, details?} where details always
// carries the request and trace ids when known.
type Error struct {
	Status  int
	Code    string
	Message string
	Errors  []string
	Details map[string]any
}

func (e Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Status: status, Code: oneLine(code, 80), Message: oneLine(message, 512)}
}

// ValidationError is the 422 response listing one message per invalid field.
func ValidationError(message string, fieldErrors []string) Error {
	if strings.TrimSpace(message) == "" {
		message = "validation failed"
	}
	return NewError("validation_failed", message, http.StatusUnprocessableEntity).WithErrors(fieldErrors)
}

// InternalError hides the cause; handlers log it before responding.
func InternalError() Error {
	return NewError("internal_error", "internal server error", http.StatusInternalServerError)
}

// WithErrors drops blank messages.
func (e Error) WithErrors(messages []string) Error {
	var out []string
	for _, msg := range messages {
		if msg = oneLine(msg, 256); msg != "" {
			out = append(out, msg)
		}
	}
	e.Errors = out
	return e
}

func (e Error) WithDetails(details map[string]any) Error {
	if len(details) > 0 {
		merged := maps.Clone(e.Details)
		if merged == nil {
			merged = make(map[string]any, len(details))
		}
		maps.Copy(merged, details)
		e.Details = merged
	}
	return e
}

type errorBody struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteError renders err. The request id from chi and the trace id from
// the request context are added to details.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	details := maps.Clone(err.Details)
	for key, value := range map[string]string{
		"requestId": oneLine(middleware.GetReqID(ctx), 80),
		"traceId":   oneLine(requestctx.TraceID(ctx), 64),
	} {
		if value == "" {
			continue
		}
		if details == nil {
			details = make(map[string]any, 2)
		}
		if _, set := details[key]; !set {
			details[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Message: err.Message,
		Code:    err.Code,
		Errors:  err.Errors,
		Details: details,
	})
}

// oneLine flattens line breaks and caps value at limit bytes.
func oneLine(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value))
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
