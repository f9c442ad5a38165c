package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/campverse/api/internal/platform/pagination"
)

// Now is overridable in tests.
var Now = func() time.Time { return time.Now().UTC() }

// Envelope is the success body shared by every endpoint.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Data       any              `json:"data,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

// WriteSuccess renders {success:true, message, data?, timestamp}.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, status, Envelope{
		Success: true,
		Message: defaultMessage(message),
		Data:    data,
	})
}

// WritePaginated renders a success envelope with pagination metadata.
func WritePaginated(w http.ResponseWriter, message string, data any, meta pagination.Meta) {
	writeEnvelope(w, http.StatusOK, Envelope{
		Success:    true,
		Message:    defaultMessage(message),
		Data:       data,
		Pagination: &meta,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	if status == 0 {
		status = http.StatusOK
	}
	env.Timestamp = Now().Format(time.RFC3339Nano)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func defaultMessage(message string) string {
	if message = strings.TrimSpace(message); message == "" {
		return "ok"
	}
	return message
}
