package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"nodeproof-backend/internal/features/node/models"
	"nodeproof-backend/internal/features/node/repository"
	redisplatform "nodeproof-backend/internal/platform/redis"
)

const keyPrefixFacts = "nodefacts:"

func makeFactsKey(nodeID string) string {
	return keyPrefixFacts + nodeID
}

type factsRepository struct {
	client *redisplatform.Client
}

func NewFactsRepository(client *redisplatform.Client) repository.FactsRepository {
	return &factsRepository{client: client}
}

func (r *factsRepository) Get(ctx context.Context, nodeID string) (*models.Facts, error) {
	data, err := r.client.Get(ctx, makeFactsKey(nodeID)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrFactsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node facts: %w", err)
	}

	var facts models.Facts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node facts: %w", err)
	}
	return &facts, nil
}

func (r *factsRepository) Apply(ctx context.Context, obs *models.Observation) (*models.Facts, error) {
	key := makeFactsKey(obs.NodeID)
	var updated *models.Facts

	// WATCH keeps concurrent crawler reports from clobbering first_seen_at.
	txf := func(tx *redis.Tx) error {
		facts := &models.Facts{NodeID: obs.NodeID, FirstSeenAt: obs.LastSeenAt}

		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(data, facts); err != nil {
				return fmt.Errorf("failed to unmarshal node facts: %w", err)
			}
		}

		if obs.IP != "" {
			facts.IP = obs.IP
		}
		if obs.UserAgent != "" {
			facts.UserAgent = obs.UserAgent
		}
		if obs.Version != "" {
			facts.Version = obs.Version
		}
		facts.Reachable = obs.PortReachable
		facts.UptimePercentage = obs.UptimePercentage
		facts.TipsEnabled = obs.TipsEnabled
		facts.LastSeenAt = obs.LastSeenAt
		if facts.FirstSeenAt.IsZero() || obs.LastSeenAt.Before(facts.FirstSeenAt) {
			facts.FirstSeenAt = obs.LastSeenAt
		}

		next, err := json.Marshal(facts)
		if err != nil {
			return fmt.Errorf("failed to marshal node facts: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = facts
		return nil
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return updated, nil
}
