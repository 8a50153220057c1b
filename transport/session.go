package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"converse/auth"
	"converse/contract"
	"converse/domain"
	"converse/services"
)

// Session upgrades authenticated HTTP requests to websocket sessions
// and drives each one: presence registration, channel rejoin, inbound
// frame dispatch and teardown. Every inbound op is fire-and-forget;
// failures are logged, never surfaced to the peer.
type Session struct {
	log      *slog.Logger
	registry contract.IRegistry
	hub      *Hub
	chat     services.IChatService
	groups   services.IGroupService
	upgrader websocket.Upgrader
}

func NewSession(
	log *slog.Logger,
	registry contract.IRegistry,
	hub *Hub,
	chat services.IChatService,
	groups services.IGroupService,
) *Session {
	return &Session{
		log:      log,
		registry: registry,
		hub:      hub,
		chat:     chat,
		groups:   groups,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the app origin; cross origin
			// policy is enforced at the gateway.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Session) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ValidateToken(auth.ResolveSessionToken(r))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "user", userID, "error", err)
		return
	}

	connectionID := uuid.NewString()
	client := NewClient(connectionID, userID, conn, s.log)
	s.hub.Register(client)
	s.registry.Connect(userID, connectionID)
	s.log.Info("session opened", "user", userID, "connection", connectionID)

	// Persisted roster drives the channel rejoin; the session keeps its
	// own joined set for teardown so a disconnect never walks storage.
	joined := make(map[string]struct{})
	if groups, err := s.groups.UserGroups(userID); err == nil {
		for _, group := range groups {
			s.registry.JoinChannel(group.ID, userID)
			s.hub.AddSubscriber(connectionID, group.ID)
			joined[group.ID] = struct{}{}
		}
	} else {
		s.log.Warn("channel rejoin skipped", "user", userID, "error", err)
	}

	go client.WritePump()
	client.ReadPump(
		func(frame Frame) { s.dispatch(r.Context(), client, joined, frame) },
		func() { s.teardown(client, joined) },
	)
}

// dispatch runs on the read pump goroutine, one frame at a time, so the
// joined set needs no lock.
func (s *Session) dispatch(ctx context.Context, client *Client, joined map[string]struct{}, frame Frame) {
	switch frame.Event {
	case EventSendToUser:
		var req SendToUserRequest
		if !s.decode(frame, &req) {
			return
		}
		if _, ok := s.chat.SendDirect(ctx, client.UserID, req.To, req.Content, contentTypeOrDefault(req.ContentType)); !ok {
			s.log.Warn("direct send dropped", "sender", client.UserID, "receiver", req.To)
		}

	case EventSendToGroup:
		var req SendToGroupRequest
		if !s.decode(frame, &req) {
			return
		}
		message, ok := s.chat.SendGroup(ctx, client.UserID, req.GroupID, req.Content, contentTypeOrDefault(req.ContentType))
		if !ok {
			s.log.Warn("group send dropped", "sender", client.UserID, "group", req.GroupID)
			return
		}
		// Broadcast the persisted message, not the raw request, so live
		// subscribers see the same content history readers will.
		_ = s.hub.Broadcast(req.GroupID, EventReceiveGroupMessage, services.GroupMessagePayload{
			Sender:      message.SenderID,
			Content:     message.Content,
			ContentType: message.ContentType,
			GroupID:     req.GroupID,
		})

	case EventJoinGroup:
		var req GroupRequest
		if !s.decode(frame, &req) {
			return
		}
		s.joinGroup(ctx, client, joined, req.GroupID)

	case EventLeaveGroup:
		var req GroupRequest
		if !s.decode(frame, &req) {
			return
		}
		s.leaveGroup(ctx, client, joined, req.GroupID)

	case EventMarkRead:
		var req MarkReadRequest
		if !s.decode(frame, &req) {
			return
		}
		s.chat.MarkRead(client.UserID, req.Sender)

	case EventOnlineUsers:
		if err := s.hub.Unicast(client.ID, EventOnlineUsers, s.registry.OnlineUsers()); err != nil {
			s.log.Warn("online users push failed", "connection", client.ID, "error", err)
		}

	case EventFind:
		var req FindRequest
		if !s.decode(frame, &req) {
			return
		}
		hits, err := s.chat.Search(ctx, client.UserID, req.Query)
		if err != nil {
			s.log.Warn("search failed", "user", client.UserID, "error", err)
			return
		}
		_ = s.hub.Unicast(client.ID, EventSearchResults, hits)

	default:
		s.log.Warn("unknown event dropped", "event", frame.Event, "connection", client.ID)
	}
}

// joinGroup re-validates persisted membership before any live
// subscription. Non-members are silently ignored.
func (s *Session) joinGroup(ctx context.Context, client *Client, joined map[string]struct{}, groupID string) {
	group, err := s.groups.GetGroup(groupID)
	if err != nil || !group.HasMember(client.UserID) {
		s.log.Warn("channel join refused", "user", client.UserID, "group", groupID)
		return
	}
	if _, already := joined[groupID]; already {
		return
	}

	s.registry.JoinChannel(groupID, client.UserID)
	s.hub.AddSubscriber(client.ID, groupID)
	joined[groupID] = struct{}{}
	s.notifyGroup(ctx, client.UserID, groupID, fmt.Sprintf("%s joined the conversation", client.UserID))
}

func (s *Session) leaveGroup(ctx context.Context, client *Client, joined map[string]struct{}, groupID string) {
	if _, ok := joined[groupID]; !ok {
		return
	}
	s.notifyGroup(ctx, client.UserID, groupID, fmt.Sprintf("%s left the conversation", client.UserID))
	s.registry.LeaveChannel(groupID, client.UserID)
	s.hub.RemoveSubscriber(client.ID, groupID)
	delete(joined, groupID)
}

// notifyGroup persists an informational message and fans it out to the
// channel, same path as a regular group message.
func (s *Session) notifyGroup(ctx context.Context, userID, groupID, text string) {
	message, ok := s.chat.SendGroup(ctx, userID, groupID, text, domain.ContentInfo)
	if !ok {
		return
	}
	_ = s.hub.Broadcast(groupID, EventReceiveGroupMessage, services.GroupMessagePayload{
		Sender:      message.SenderID,
		Content:     message.Content,
		ContentType: message.ContentType,
		GroupID:     groupID,
	})
}

func (s *Session) teardown(client *Client, joined map[string]struct{}) {
	// A reconnect overwrites the user's registry entry; Disconnect then
	// returns "" for the superseded connection and its channel entries
	// must survive, they belong to the new session now.
	owner := s.registry.Disconnect(client.ID)
	if owner != "" {
		for groupID := range joined {
			s.registry.LeaveChannel(groupID, owner)
		}
	}
	s.hub.Unregister(client.ID)
	s.log.Info("session closed", "user", client.UserID, "connection", client.ID)
}

func (s *Session) decode(frame Frame, into any) bool {
	if err := json.Unmarshal(frame.Data, into); err != nil {
		s.log.Warn("malformed payload dropped", "event", frame.Event, "error", err)
		return false
	}
	return true
}

func contentTypeOrDefault(ct domain.ContentType) domain.ContentType {
	if ct == "" {
		return domain.ContentText
	}
	return ct
}
