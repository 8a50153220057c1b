package event

import "sync"

// Bus is a synchronous in-process publish/subscribe dispatcher.
//
// Subscriber lists must be populated exactly once at process start, before
// any session is accepted. Subscribing per session would leak handlers for
// the process lifetime. Handlers run synchronously in registration order;
// a handler must not block.
type Bus struct {
	mu               sync.RWMutex
	messageSaved     []func(MessageSaved)
	messageSent      []func(MessageSent)
	groupMessageSent []func(GroupMessageSent)
	messageDelivered []func(MessageDelivered)
	markedRead       []func(MarkedRead)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnMessageSaved(h func(MessageSaved)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messageSaved = append(b.messageSaved, h)
}

func (b *Bus) OnMessageSent(h func(MessageSent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messageSent = append(b.messageSent, h)
}

func (b *Bus) OnGroupMessageSent(h func(GroupMessageSent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groupMessageSent = append(b.groupMessageSent, h)
}

func (b *Bus) OnMessageDelivered(h func(MessageDelivered)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messageDelivered = append(b.messageDelivered, h)
}

func (b *Bus) OnMarkedRead(h func(MarkedRead)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markedRead = append(b.markedRead, h)
}

func (b *Bus) PublishMessageSaved(e MessageSaved) {
	b.mu.RLock()
	handlers := b.messageSaved
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func (b *Bus) PublishMessageSent(e MessageSent) {
	b.mu.RLock()
	handlers := b.messageSent
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func (b *Bus) PublishGroupMessageSent(e GroupMessageSent) {
	b.mu.RLock()
	handlers := b.groupMessageSent
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func (b *Bus) PublishMessageDelivered(e MessageDelivered) {
	b.mu.RLock()
	handlers := b.messageDelivered
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func (b *Bus) PublishMarkedRead(e MarkedRead) {
	b.mu.RLock()
	handlers := b.markedRead
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
