package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories/memory"
	"github.com/campverse/api/internal/services"
)

func newNotificationFixture(t *testing.T) (chi.Router, services.NotificationService) {
	t.Helper()
	svc, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: memory.NewStore().Notifications(),
	})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/notifications", NewNotificationHandlers(nil, svc).Routes)
	return r, svc
}

func notify(t *testing.T, svc services.NotificationService, userID, title string) services.Notification {
	t.Helper()
	n, err := svc.Notify(context.Background(), services.NotifyCommand{
		UserID:  userID,
		Type:    domain.NotificationTypeOrderStatus,
		Title:   title,
		Message: title + " body",
	})
	require.NoError(t, err)
	return n
}

func TestNotificationHandlers_ListAndUnreadCount(t *testing.T) {
	router, svc := newNotificationFixture(t)
	first := notify(t, svc, "user-1", "Order shipped")
	notify(t, svc, "user-1", "Order delivered")
	notify(t, svc, "user-2", "Not yours")

	_, err := svc.MarkRead(context.Background(), "user-1", first.ID)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	env := decodeEnvelope(t, rr)
	var items []services.NotificationPayload
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, "Order delivered", items[0].Title)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)
	var count map[string]int64
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &count))
	require.Equal(t, int64(1), count["count"])
}

func TestNotificationHandlers_RejectsBadUnreadFlag(t *testing.T) {
	router, _ := newNotificationFixture(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/notifications?unread=maybe", nil), "user-1"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationHandlers_MarkReadIsScopedToOwner(t *testing.T) {
	router, svc := newNotificationFixture(t)
	n := notify(t, svc, "user-1", "Booking confirmed")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPatch, "/notifications/"+n.ID+"/read", nil), "user-2"))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "notification_not_found", decodeEnvelope(t, rr).Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPatch, "/notifications/"+n.ID+"/read", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)
	var payload services.NotificationPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &payload))
	require.True(t, payload.Read)
	require.NotNil(t, payload.ReadAt)
}

func TestNotificationHandlers_ReadAllAndDeleteAll(t *testing.T) {
	router, svc := newNotificationFixture(t)
	notify(t, svc, "user-1", "One")
	notify(t, svc, "user-1", "Two")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPatch, "/notifications/read-all", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)
	var updated map[string]int
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &updated))
	require.Equal(t, 2, updated["updated"])

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodDelete, "/notifications", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)
	var deleted map[string]int
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &deleted))
	require.Equal(t, 2, deleted["deleted"])
}
