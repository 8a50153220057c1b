// Package domain contains core concepts of the chat system.
// Messages are immutable once persisted except for their two
// monotonic status flags, delivered and read.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentText  ContentType = "Text"
	ContentInfo  ContentType = "Info"
	ContentImage ContentType = "Image"
)

// Message represents a chat message, either direct (ReceiverID set)
// or group (GroupID set). Exactly one of the two is non empty.
type Message struct {
	ID          uuid.UUID
	SenderID    string
	ReceiverID  string
	GroupID     string
	Content     string
	ContentType ContentType
	Language    string
	SentAt      time.Time
	Delivered   bool
	Read        bool
}

func NewDirectMessage(senderID, receiverID, content string, contentType ContentType) Message {
	return Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		ContentType: contentType,
		SentAt:      time.Now().UTC(),
	}
}

func NewGroupMessage(senderID, groupID, content string, contentType ContentType) Message {
	return Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		GroupID:     groupID,
		Content:     content,
		ContentType: contentType,
		SentAt:      time.Now().UTC(),
	}
}

func (m Message) IsGroup() bool {
	return m.GroupID != ""
}
