package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/services"
)

const maxMessageBodySize = 16 * 1024

// MessageHandlers exposes direct and support messaging.
type MessageHandlers struct {
	authn    *auth.Authenticator
	messages services.MessageService
}

// NewMessageHandlers constructs MessageHandlers.
func NewMessageHandlers(authn *auth.Authenticator, messages services.MessageService) *MessageHandlers {
	return &MessageHandlers{authn: authn, messages: messages}
}

// Routes registers the /messages endpoints.
func (h *MessageHandlers) Routes(r chi.Router) {
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.send)
	r.Get("/{userID}", h.conversation)
}

type sendMessageRequest struct {
	ToUserID string `json:"toUserId"`
	Body     string `json:"body"`
}

func (h *MessageHandlers) send(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeJSONBody(w, r, maxMessageBodySize, &req) {
		return
	}
	message, err := h.messages.SendMessage(r.Context(), services.SendMessageCommand{
		FromUserID: identity.UID,
		ToUserID:   req.ToUserID,
		Body:       req.Body,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "message sent", services.NewMessagePayload(message))
}

func (h *MessageHandlers) conversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.messages.ListConversation(r.Context(), identity.UID, chi.URLParam(r, "userID"), params)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "messages retrieved", mapSlice(page.Items, services.NewMessagePayload), pagination.NewMeta(params, page.Total))
}
