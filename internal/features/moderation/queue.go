package moderation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	redisplatform "nodeproof-backend/internal/platform/redis"
)

const (
	// StreamQueueKey receives verification outcomes for human review.
	StreamQueueKey = "moderation:queue"
	// StreamDecisionsKey carries review decisions back to this service.
	StreamDecisionsKey = "moderation:decisions"

	ItemTypeVerification = "verification"

	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// ContentData is the verification context shipped with a queue item.
type ContentData struct {
	NodeID    string `json:"node_id"`
	Method    string `json:"method"`
	Challenge string `json:"challenge"`
	Proof     string `json:"proof"`
	Passed    bool   `json:"passed"`
}

// Item is one moderation-queue entry.
type Item struct {
	ItemType    string      `json:"item_type"`
	ItemID      string      `json:"item_id"`
	UserID      int64       `json:"user_id"`
	ContentData ContentData `json:"content_data"`
}

// Decision is the reviewer's verdict on a queue item.
type Decision struct {
	ItemID   string `json:"item_id"`
	Decision string `json:"decision"`
}

// Queue is the fire-and-forget handoff to the moderation collaborator.
type Queue interface {
	Enqueue(ctx context.Context, item *Item) error
}

// StreamQueue publishes items to the moderation Redis stream.
type StreamQueue struct {
	client *redisplatform.Client
	logger zerolog.Logger
}

func NewStreamQueue(client *redisplatform.Client, logger zerolog.Logger) *StreamQueue {
	return &StreamQueue{client: client, logger: logger}
}

func (q *StreamQueue) Enqueue(ctx context.Context, item *Item) error {
	content, err := json.Marshal(item.ContentData)
	if err != nil {
		return fmt.Errorf("failed to marshal content data: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamQueueKey,
		Values: map[string]interface{}{
			"item_type":    item.ItemType,
			"item_id":      item.ItemID,
			"user_id":      item.UserID,
			"content_data": string(content),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue moderation item: %w", err)
	}

	q.logger.Debug().
		Str("item_id", item.ItemID).
		Str("item_type", item.ItemType).
		Msg("Moderation item enqueued")
	return nil
}
