//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"converse/domain"
)

type IMessageRepository interface {
	Insert(message domain.Message) error
	QueryBetween(userA, userB string) ([]domain.Message, error)
	QueryForGroup(groupID string) ([]domain.Message, error)
	QueryUnread(receiverID string) ([]domain.Message, error)
	MarkDeliveredBatch(receiverID string) ([]uuid.UUID, error)
	MarkReadBatch(receiverID, senderID string) ([]uuid.UUID, error)
}

// MessageRepository persists messages in BadgerDB.
//
// The primary key is "msg:d:{a|b}:{timestamp_padded}:{uuid}" for direct
// messages (sorted user pair) and "msg:g:{group}:{timestamp_padded}:{uuid}"
// for group messages. The 19-digit zero padded nanosecond timestamp makes
// lexicographical iteration chronological; the UUID disambiguates two
// messages arriving in the same nanosecond.
//
// Two secondary index families under "idx:" drive the batch status flips:
//
//	idx:undelivered:{receiver}:{ts}:{uuid} -> primary key
//	idx:unread:{receiver}:{sender}:{ts}:{uuid} -> primary key
//
// Index entries are deleted when the corresponding flag flips to true, so
// the delivered and read flags are monotonic by construction.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// storedMessage is the on-disk representation.
type storedMessage struct {
	ID          uuid.UUID          `json:"id"`
	SenderID    string             `json:"sender_id"`
	ReceiverID  string             `json:"receiver_id,omitempty"`
	GroupID     string             `json:"group_id,omitempty"`
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
	Language    string             `json:"language,omitempty"`
	SentAt      time.Time          `json:"sent_at"`
	Delivered   bool               `json:"delivered"`
	Read        bool               `json:"read"`
}

// DirectConversationKey is order independent: both participants resolve
// to the same conversation.
func DirectConversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("d:%s|%s", userA, userB)
}

func GroupConversationKey(groupID string) string {
	return "g:" + groupID
}

// ConversationKey routes a message to its conversation partition.
func ConversationKey(message domain.Message) string {
	if message.IsGroup() {
		return GroupConversationKey(message.GroupID)
	}
	return DirectConversationKey(message.SenderID, message.ReceiverID)
}

func primaryKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		ConversationKey(message),
		message.SentAt.UnixNano(),
		message.ID,
	))
}

func undeliveredKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("idx:undelivered:%s:%019d:%s",
		message.ReceiverID,
		message.SentAt.UnixNano(),
		message.ID,
	))
}

func unreadKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("idx:unread:%s:%s:%019d:%s",
		message.ReceiverID,
		message.SenderID,
		message.SentAt.UnixNano(),
		message.ID,
	))
}

// Insert persists the message and, for direct messages, the pending
// status index entries in the same transaction.
func (m MessageRepository) Insert(message domain.Message) error {
	bytes, err := json.Marshal(fromDomain(message))
	if err != nil {
		return err
	}
	key := primaryKey(message)

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		if message.IsGroup() {
			return nil
		}
		if !message.Delivered {
			if err := txn.Set(undeliveredKey(message), key); err != nil {
				return err
			}
		}
		if !message.Read {
			if err := txn.Set(unreadKey(message), key); err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryBetween returns the direct history of two users ascending by send
// time. When a message limit is configured, only the most recent window
// is returned, still ascending.
func (m MessageRepository) QueryBetween(userA, userB string) ([]domain.Message, error) {
	prefix := fmt.Sprintf("msg:%s:", DirectConversationKey(userA, userB))
	return m.scanMessages(prefix)
}

func (m MessageRepository) QueryForGroup(groupID string) ([]domain.Message, error) {
	prefix := fmt.Sprintf("msg:%s:", GroupConversationKey(groupID))
	return m.scanMessages(prefix)
}

func (m MessageRepository) scanMessages(prefixStr string) ([]domain.Message, error) {
	var stored []storedMessage

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var msg storedMessage
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				stored = append(stored, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.limitMessages != nil && len(stored) > *m.limitMessages {
		m.log.Debug(fmt.Sprintf("Maximum of %d messages reached, truncating history", *m.limitMessages))
		stored = stored[len(stored)-*m.limitMessages:]
	}

	messages := make([]domain.Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, toDomain(msg))
	}
	return messages, nil
}

// QueryUnread returns every unread message addressed to the receiver,
// across senders, ascending by send time.
func (m MessageRepository) QueryUnread(receiverID string) ([]domain.Message, error) {
	prefix := fmt.Sprintf("idx:unread:%s:", receiverID)

	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		primaryKeys, err := collectIndexTargets(txn, prefix)
		if err != nil {
			return err
		}
		for _, key := range primaryKeys {
			msg, err := loadMessage(txn, key)
			if err != nil {
				return err
			}
			messages = append(messages, toDomain(msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The unread index orders by sender first, so re-sort by time.
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}

// MarkDeliveredBatch flips delivered=true on every currently-undelivered
// message addressed to the receiver and returns the affected message ids
// ascending by send time.
func (m MessageRepository) MarkDeliveredBatch(receiverID string) ([]uuid.UUID, error) {
	prefix := fmt.Sprintf("idx:undelivered:%s:", receiverID)
	return m.flipBatch(prefix, func(msg *storedMessage) {
		msg.Delivered = true
	})
}

// MarkReadBatch flips read=true on every unread message from senderID to
// receiverID and returns the affected message ids ascending by send time.
func (m MessageRepository) MarkReadBatch(receiverID, senderID string) ([]uuid.UUID, error) {
	prefix := fmt.Sprintf("idx:unread:%s:%s:", receiverID, senderID)
	return m.flipBatch(prefix, func(msg *storedMessage) {
		msg.Read = true
	})
}

// flipBatch walks one index prefix, applies the flip to every target
// message and deletes the consumed index entries, all in one transaction.
func (m MessageRepository) flipBatch(prefix string, flip func(*storedMessage)) ([]uuid.UUID, error) {
	var affected []uuid.UUID

	err := m.db.Update(func(txn *badger.Txn) error {
		primaryKeys, err := collectIndexTargets(txn, prefix)
		if err != nil {
			return err
		}

		for _, key := range primaryKeys {
			msg, err := loadMessage(txn, key)
			if err != nil {
				return err
			}
			flip(&msg)
			bytes, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if err := txn.Set(key, bytes); err != nil {
				return err
			}
			affected = append(affected, msg.ID)
		}

		return deleteIndexEntries(txn, prefix)
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// collectIndexTargets snapshots the primary keys referenced under an
// index prefix. The iterator is closed before any mutation happens.
func collectIndexTargets(txn *badger.Txn, prefixStr string) ([][]byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var targets [][]byte
	prefix := []byte(prefixStr)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		targets = append(targets, key)
	}
	return targets, nil
}

func deleteIndexEntries(txn *badger.Txn, prefixStr string) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})

	var keys [][]byte
	prefix := []byte(prefixStr)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func loadMessage(txn *badger.Txn, key []byte) (storedMessage, error) {
	item, err := txn.Get(key)
	if err != nil {
		return storedMessage{}, fmt.Errorf("dangling index entry for %s: %w", strings.TrimSpace(string(key)), err)
	}
	var msg storedMessage
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &msg)
	})
	return msg, err
}

func fromDomain(message domain.Message) storedMessage {
	return storedMessage{
		ID:          message.ID,
		SenderID:    message.SenderID,
		ReceiverID:  message.ReceiverID,
		GroupID:     message.GroupID,
		Content:     message.Content,
		ContentType: message.ContentType,
		Language:    message.Language,
		SentAt:      message.SentAt,
		Delivered:   message.Delivered,
		Read:        message.Read,
	}
}

func toDomain(msg storedMessage) domain.Message {
	return domain.Message{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		ReceiverID:  msg.ReceiverID,
		GroupID:     msg.GroupID,
		Content:     msg.Content,
		ContentType: msg.ContentType,
		Language:    msg.Language,
		SentAt:      msg.SentAt,
		Delivered:   msg.Delivered,
		Read:        msg.Read,
	}
}
