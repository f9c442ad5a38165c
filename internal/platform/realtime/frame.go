// Package realtime pushes JSON frames to connected clients over websockets.
// Frames are routed through a Broker so that any API instance can reach a
// user connected to any other instance.
package realtime

import (
	"encoding/json"
	"strings"
)

// Event names understood by the web and mobile clients.
const (
	EventNewNotification   = "new_notification"
	EventNotificationRead  = "notification_read"
	EventUnreadCountUpdate = "unread_count_update"
	EventUserTyping        = "user_typing"
	EventSupportNewMessage = "support_new_message"
)

// Frame is the server to client message: {"event": name, "data": payload}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a Frame.
func NewFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// ClientFrame is what clients send: {"event":"user_typing","to":"<uid>"}.
type ClientFrame struct {
	Event string `json:"event"`
	To    string `json:"to,omitempty"`
}

// UserChannel names the per-user channel, "user:<id>".
func UserChannel(userID string) string {
	return "user:" + strings.TrimSpace(userID)
}
