//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"converse/contract"
	"converse/domain"
	"converse/domain/event"
	"converse/domain/search"
	"converse/moderation"
	"converse/repositories"
)

type IChatService interface {
	SendDirect(ctx context.Context, senderID, receiverID, content string, contentType domain.ContentType) (domain.Message, bool)
	SendGroup(ctx context.Context, senderID, groupID, content string, contentType domain.ContentType) (domain.Message, bool)
	MarkRead(receiverID, senderID string) bool
	History(userA, userB string) ([]domain.Message, error)
	GroupHistory(groupID string) ([]domain.Message, error)
	Unread(receiverID string) ([]domain.Message, error)
	Search(ctx context.Context, callerID, rawQuery string) ([]repositories.SearchHit, error)
}

// ChatService is the message delivery pipeline: persist, publish, then
// conditionally push live. Persistence and notification are two
// independent steps so durability never depends on transport
// availability; a message counts as sent once durable.
//
// The boolean results encode the fail-closed live-path policy: callers
// on the fire-and-forget side log a false and move on, the REST side
// translates it.
type ChatService struct {
	log       *slog.Logger
	messages  repositories.IMessageRepository
	users     repositories.IUserRepository
	groups    repositories.IGroupRepository
	index     repositories.ISearchIndex
	registry  contract.IRegistry
	transport contract.ILiveTransport
	bus       *event.Bus
	filter    *moderation.Filter
}

func NewChatService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	groups repositories.IGroupRepository,
	index repositories.ISearchIndex,
	registry contract.IRegistry,
	transport contract.ILiveTransport,
	bus *event.Bus,
	filter *moderation.Filter,
) *ChatService {
	return &ChatService{
		log:       log,
		messages:  messages,
		users:     users,
		groups:    groups,
		index:     index,
		registry:  registry,
		transport: transport,
		bus:       bus,
		filter:    filter,
	}
}

// DirectMessagePayload is what the receiver's client gets pushed.
type DirectMessagePayload struct {
	Sender      string             `json:"sender"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
}

// GroupMessagePayload is broadcast to a group's channel subscribers.
type GroupMessagePayload struct {
	Sender      string             `json:"sender"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
	GroupID     string             `json:"group_id"`
}

// SendDirect validates, persists, publishes and best-effort pushes a
// direct message. Any failure before durability returns false with no
// side effects. The returned message is the persisted one, moderation
// applied, so callers relay exactly what the store holds.
func (s *ChatService) SendDirect(ctx context.Context, senderID, receiverID, content string, contentType domain.ContentType) (domain.Message, bool) {
	if senderID == "" || receiverID == "" {
		s.log.Warn("direct send rejected: empty identifier", "sender", senderID, "receiver", receiverID)
		return domain.Message{}, false
	}

	if _, err := s.users.GetUser(receiverID); err != nil {
		s.log.Warn("direct send rejected: unknown receiver", "receiver", receiverID)
		return domain.Message{}, false
	}

	message := domain.NewDirectMessage(senderID, receiverID, s.moderate(content), contentType)
	message.Language = domain.DetectLanguage(message.Content)

	if !s.persist(message) {
		return domain.Message{}, false
	}

	s.bus.PublishMessageSent(event.MessageSent{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    message.Content,
	})

	if s.registry.IsOnline(receiverID) {
		s.flipDelivered(receiverID)
		s.push(receiverID, message)
	}

	return message, true
}

// SendGroup validates roster membership, persists and publishes. Live
// fan-out to channel subscribers is the caller's responsibility, fed
// from the returned message so moderated content is what goes out.
func (s *ChatService) SendGroup(ctx context.Context, senderID, groupID, content string, contentType domain.ContentType) (domain.Message, bool) {
	if senderID == "" || groupID == "" {
		s.log.Warn("group send rejected: empty identifier", "sender", senderID, "group", groupID)
		return domain.Message{}, false
	}

	group, err := s.groups.GetGroup(groupID)
	if err != nil || !group.HasMember(senderID) {
		s.log.Warn("group send rejected: sender is not a member", "sender", senderID, "group", groupID)
		return domain.Message{}, false
	}

	message := domain.NewGroupMessage(senderID, groupID, s.moderate(content), contentType)
	message.Language = domain.DetectLanguage(message.Content)

	if !s.persist(message) {
		return domain.Message{}, false
	}

	s.bus.PublishGroupMessageSent(event.GroupMessageSent{
		SenderID: senderID,
		GroupID:  groupID,
		Content:  message.Content,
	})

	return message, true
}

// MarkRead flips read=true on all unread messages from senderID to
// receiverID. The event fires only when at least one row changed.
func (s *ChatService) MarkRead(receiverID, senderID string) bool {
	affected, err := s.messages.MarkReadBatch(receiverID, senderID)
	if err != nil {
		s.log.Error("mark read failed", "receiver", receiverID, "sender", senderID, "error", err)
		return false
	}
	if len(affected) == 0 {
		return false
	}
	s.bus.PublishMarkedRead(event.MarkedRead{ReceiverID: receiverID, SenderID: senderID})
	return true
}

func (s *ChatService) History(userA, userB string) ([]domain.Message, error) {
	return s.messages.QueryBetween(userA, userB)
}

func (s *ChatService) GroupHistory(groupID string) ([]domain.Message, error) {
	return s.messages.QueryForGroup(groupID)
}

func (s *ChatService) Unread(receiverID string) ([]domain.Message, error) {
	return s.messages.QueryUnread(receiverID)
}

// Search runs a /find style query against the message index, scoped to
// a conversation the caller names (group or direct peer).
func (s *ChatService) Search(ctx context.Context, callerID, rawQuery string) ([]repositories.SearchHit, error) {
	query := search.Parse(rawQuery)

	conversation := ""
	switch {
	case query.GroupID != "":
		conversation = repositories.GroupConversationKey(query.GroupID)
	case query.WithUser != "":
		conversation = repositories.DirectConversationKey(callerID, query.WithUser)
	}

	return s.index.Search(ctx, query.Terms, conversation, query.Limit)
}

// persist stores the message and announces durability. A storage error
// aborts the send: no event, no push.
func (s *ChatService) persist(message domain.Message) bool {
	if err := s.messages.Insert(message); err != nil {
		s.log.Error("failed to save message", "sender", message.SenderID, "error", err)
		return false
	}
	s.bus.PublishMessageSaved(event.MessageSaved{Message: message})
	return true
}

// flipDelivered clears the receiver's whole outstanding backlog, not
// just the newest message: the receiver being reachable is the trigger.
func (s *ChatService) flipDelivered(receiverID string) {
	if _, err := s.messages.MarkDeliveredBatch(receiverID); err != nil {
		s.log.Error("delivered flip failed", "receiver", receiverID, "error", err)
		return
	}
	s.bus.PublishMessageDelivered(event.MessageDelivered{ReceiverID: receiverID})
}

// push is best effort; a failed push is logged, never retried, and the
// message stays flagged delivered. Accepted trade-off of the batch flip.
func (s *ChatService) push(receiverID string, message domain.Message) {
	connectionID := s.registry.ConnectionFor(receiverID)
	if connectionID == "" {
		return
	}
	err := s.transport.Unicast(connectionID, "receive_message", DirectMessagePayload{
		Sender:      message.SenderID,
		Content:     message.Content,
		ContentType: message.ContentType,
	})
	if err != nil {
		s.log.Warn("live push failed", "receiver", receiverID, "error", err)
	}
}

func (s *ChatService) moderate(content string) string {
	if s.filter == nil {
		return content
	}
	return s.filter.Apply(content)
}
