package workers

import (
	"context"
	"log/slog"

	"converse/domain"
	"converse/repositories"
)

// IndexerWorker consumes saved messages off a queue and feeds the
// full-text index. Indexing is off the send path on purpose: a slow or
// broken index never delays message delivery.
type IndexerWorker struct {
	log   *slog.Logger
	index repositories.ISearchIndex
	queue chan domain.Message
}

func NewIndexerWorker(log *slog.Logger, index repositories.ISearchIndex, queueSize int) *IndexerWorker {
	return &IndexerWorker{
		log:   log,
		index: index,
		queue: make(chan domain.Message, queueSize),
	}
}

// Enqueue is the bus-facing entry point, non-blocking. When the queue
// is full the message is skipped; search misses a document, chat does
// not stall.
func (w *IndexerWorker) Enqueue(message domain.Message) {
	select {
	case w.queue <- message:
	default:
		w.log.Warn("index queue full, message skipped", "message", message.ID)
	}
}

func (w *IndexerWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case message, ok := <-w.queue:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if err := w.index.Index(message); err != nil {
				w.log.Error("indexing failed", "message", message.ID, "error", err)
			}
		}
	}
}
