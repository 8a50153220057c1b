package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"converse/domain"
	"converse/repositories"
)

type recordingIndex struct {
	mu      sync.Mutex
	indexed []domain.Message
}

func (r *recordingIndex) Index(message domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, message)
	return nil
}

func (r *recordingIndex) Search(ctx context.Context, terms, conversation string, limit int) ([]repositories.SearchHit, error) {
	return nil, nil
}

func (r *recordingIndex) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed)
}

func TestIndexerWorker_DrainsQueue(t *testing.T) {
	req := require.New(t)
	index := &recordingIndex{}
	worker := NewIndexerWorker(slog.Default(), index, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	worker.Enqueue(domain.NewDirectMessage("alice", "bob", "one", domain.ContentText))
	worker.Enqueue(domain.NewDirectMessage("alice", "bob", "two", domain.ContentText))

	req.Eventually(func() bool { return index.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestIndexerWorker_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	worker := NewIndexerWorker(slog.Default(), &recordingIndex{}, 1)

	// No consumer running; the second enqueue must return immediately
	done := make(chan struct{})
	go func() {
		worker.Enqueue(domain.NewDirectMessage("alice", "bob", "one", domain.ContentText))
		worker.Enqueue(domain.NewDirectMessage("alice", "bob", "two", domain.ContentText))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Enqueue should never block")
	}
}
