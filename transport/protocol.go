package transport

import (
	"encoding/json"

	"converse/domain"
)

// Frame is the wire envelope, both directions. The event name selects
// the payload shape.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client to server.
const (
	EventSendToUser  = "send_to_user"
	EventSendToGroup = "send_to_group"
	EventJoinGroup   = "join_group"
	EventLeaveGroup  = "leave_group"
	EventMarkRead    = "mark_read"
	EventOnlineUsers = "online_users"
	EventFind        = "find"
)

// Server to client.
const (
	EventReceiveMessage      = "receive_message"
	EventReceiveGroupMessage = "receive_group_message"
	EventSearchResults       = "search_results"
)

type SendToUserRequest struct {
	To          string             `json:"to"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type,omitempty"`
}

type SendToGroupRequest struct {
	GroupID     string             `json:"group_id"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type,omitempty"`
}

type GroupRequest struct {
	GroupID string `json:"group_id"`
}

type MarkReadRequest struct {
	Sender string `json:"sender"`
}

type FindRequest struct {
	Query string `json:"query"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: event, Data: payload})
}
