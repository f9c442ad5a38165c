package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/services"
)

// NotificationHandlers exposes the caller's notification inbox.
type NotificationHandlers struct {
	authn         *auth.Authenticator
	notifications services.NotificationService
}

// NewNotificationHandlers constructs NotificationHandlers.
func NewNotificationHandlers(authn *auth.Authenticator, notifications services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{authn: authn, notifications: notifications}
}

// Routes registers the /notifications endpoints.
func (h *NotificationHandlers) Routes(r chi.Router) {
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.list)
	r.Delete("/", h.deleteAll)
	r.Get("/unread-count", h.unreadCount)
	r.Patch("/read-all", h.markAllRead)
	r.Patch("/{notificationID}/read", h.markRead)
	r.Delete("/{notificationID}", h.delete)
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	unreadOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "unread must be a boolean", http.StatusBadRequest))
			return
		}
		unreadOnly = parsed
	}
	page, err := h.notifications.List(r.Context(), services.NotificationListFilter{
		UserID:     identity.UID,
		UnreadOnly: unreadOnly,
		Pagination: params,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "notifications retrieved", mapSlice(page.Items, services.NewNotificationPayload), pagination.NewMeta(params, page.Total))
}

func (h *NotificationHandlers) unreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "unread count retrieved", map[string]int64{"count": count})
}

func (h *NotificationHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(r.Context(), identity.UID, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "notification marked as read", services.NewNotificationPayload(notification))
}

func (h *NotificationHandlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "all notifications marked as read", map[string]int{"updated": updated})
}

func (h *NotificationHandlers) delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.notifications.Delete(r.Context(), identity.UID, chi.URLParam(r, "notificationID")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "notification deleted", nil)
}

func (h *NotificationHandlers) deleteAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	deleted, err := h.notifications.DeleteAll(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "notifications deleted", map[string]int{"deleted": deleted})
}
