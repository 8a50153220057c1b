// Package event defines the closed set of notification variants emitted by
// the delivery pipeline and the in-process bus that dispatches them.
//
// The set is deliberately closed: one struct per variant, one subscriber
// list per variant. No runtime type lookup is involved, so the whole
// notification surface is auditable at compile time.
package event

import "converse/domain"

type Type string

const (
	MessageSavedType     Type = "MESSAGE_SAVED"
	MessageSentType      Type = "MESSAGE_SENT"
	GroupMessageSentType Type = "GROUP_MESSAGE_SENT"
	MessageDeliveredType Type = "MESSAGE_DELIVERED"
	MessageMarkedRead    Type = "MESSAGE_MARKED_READ"
)

// MessageSaved fires after a message became durable. It carries the whole
// message because downstream consumers (search indexing) need the content.
type MessageSaved struct {
	Message domain.Message
}

// MessageSent fires after a direct message passed the persistence step.
type MessageSent struct {
	SenderID   string
	ReceiverID string
	Content    string
}

// GroupMessageSent fires after a group message passed the persistence step.
type GroupMessageSent struct {
	SenderID string
	GroupID  string
	Content  string
}

// MessageDelivered fires after the batch delivered-flip for a receiver.
type MessageDelivered struct {
	ReceiverID string
}

// MarkedRead fires when at least one message flipped to read.
type MarkedRead struct {
	ReceiverID string
	SenderID   string
}
