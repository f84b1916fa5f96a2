package workers

import (
	"context"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nodeproof-backend/internal/features/moderation"
	verification "nodeproof-backend/internal/features/verification/service"
	redisplatform "nodeproof-backend/internal/platform/redis"
)

const (
	decisionConsumerGroup = "nodeproof_backend_consumers"
	decisionConsumerName  = "nodeproof_decision_worker"
)

// DecisionStreamWorker consumes moderation decisions and drives the
// pending_approval transitions.
type DecisionStreamWorker struct {
	rdb    *redisplatform.Client
	engine *verification.Engine
	logger zerolog.Logger
}

func NewDecisionStreamWorker(rdb *redisplatform.Client, engine *verification.Engine, logger zerolog.Logger) *DecisionStreamWorker {
	return &DecisionStreamWorker{rdb: rdb, engine: engine, logger: logger}
}

// Start blocks reading the decision stream until ctx is cancelled.
func (w *DecisionStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, moderation.StreamDecisionsKey, decisionConsumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		w.logger.Error().Err(err).Msg("Failed to create decision consumer group")
	}

	w.logger.Info().Str("stream", moderation.StreamDecisionsKey).Msg("Starting moderation decision worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping moderation decision worker")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
				Group:    decisionConsumerGroup,
				Consumer: decisionConsumerName,
				Streams:  []string{moderation.StreamDecisionsKey, ">"},
				Count:    16,
				Block:    5 * time.Second,
			}).Result()
			if err != nil {
				if err != go_redis.Nil && ctx.Err() == nil {
					w.logger.Error().Err(err).Msg("Failed to read decision stream")
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processMessage(ctx, msg.Values)
					w.rdb.XAck(ctx, moderation.StreamDecisionsKey, decisionConsumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *DecisionStreamWorker) processMessage(ctx context.Context, values map[string]interface{}) {
	itemID, _ := values["item_id"].(string)
	decision, _ := values["decision"].(string)
	if itemID == "" {
		w.logger.Warn().Interface("values", values).Msg("Decision event missing item_id")
		return
	}

	switch decision {
	case moderation.DecisionApproved, moderation.DecisionRejected:
	default:
		w.logger.Warn().Str("decision", decision).Str("item_id", itemID).Msg("Unknown moderation decision")
		return
	}

	err := w.engine.HandleDecision(ctx, itemID, decision == moderation.DecisionApproved)
	if err != nil {
		w.logger.Error().Err(err).
			Str("item_id", itemID).
			Str("decision", decision).
			Msg("Failed to apply moderation decision")
	}
}
