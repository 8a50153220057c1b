//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_index.go -package=mocks
package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"converse/domain"
)

type ISearchIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, terms, conversation string, limit int) ([]SearchHit, error)
}

type SearchHit struct {
	MessageID    string
	SenderID     string
	Conversation string
	Content      string
	SentAt       time.Time
}

// MessageIndex maintains a Bluge full-text index over message content.
// It is fed asynchronously by the indexer worker, never on the send path,
// so a slow index can never stall persistence.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

func (i *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", ConversationKey(message)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField("sent_at", message.SentAt.Format(time.RFC3339Nano)).StoreValue())

	return i.writer.Update(doc.ID(), doc)
}

// Search matches terms against message content, optionally restricted to
// one conversation partition. Results come back by descending relevance.
func (i *MessageIndex) Search(ctx context.Context, terms, conversation string, limit int) ([]SearchHit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader failed", "error", err)
		}
	}()

	boolean := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))
	if conversation != "" {
		boolean.AddMust(bluge.NewTermQuery(conversation).SetField("conversation"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolean))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit SearchHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "conversation":
				hit.Conversation = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "sent_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					hit.SentAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
