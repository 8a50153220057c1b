package event

import "log/slog"

// Metrics counts every published variant. Its handlers are registered once
// on the Bus at process start.
type Metrics struct {
	log     *slog.Logger
	counter *Counter
}

func NewMetrics(log *slog.Logger, counter *Counter) *Metrics {
	return &Metrics{log: log, counter: counter}
}

// Register attaches one counting handler per variant.
func (m *Metrics) Register(bus *Bus) {
	bus.OnMessageSaved(func(MessageSaved) { m.counter.Increment(MessageSavedType) })
	bus.OnMessageSent(func(MessageSent) { m.counter.Increment(MessageSentType) })
	bus.OnGroupMessageSent(func(GroupMessageSent) { m.counter.Increment(GroupMessageSentType) })
	bus.OnMessageDelivered(func(e MessageDelivered) {
		m.counter.Increment(MessageDeliveredType)
		m.log.Debug("messages delivered", "receiver", e.ReceiverID)
	})
	bus.OnMarkedRead(func(e MarkedRead) {
		m.counter.Increment(MessageMarkedRead)
		m.log.Debug("messages marked read", "receiver", e.ReceiverID, "sender", e.SenderID)
	})
}
