package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nodeproof-backend/internal/features/verification/models"
	"nodeproof-backend/internal/features/verification/repository"
	redisplatform "nodeproof-backend/internal/platform/redis"
)

const (
	keyPrefixChallenge   = "challenge:"
	keyPrefixPendingPair = "challenge:pending:"
	keyPrefixNodeOpen    = "node:challenges:"
	keyPrefixBinding     = "binding:"
	keyOpenChallenges    = "challenges:open"
)

func makeChallengeKey(id string) string {
	return keyPrefixChallenge + id
}

func makePendingPairKey(nodeID string, requesterID int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefixPendingPair, nodeID, requesterID)
}

func makeNodeOpenKey(nodeID string) string {
	return keyPrefixNodeOpen + nodeID
}

func makeBindingKey(nodeID string) string {
	return keyPrefixBinding + nodeID
}

type challengeRepository struct {
	client *redisplatform.Client
}

func NewChallengeRepository(client *redisplatform.Client) repository.ChallengeRepository {
	return &challengeRepository{client: client}
}

func (r *challengeRepository) Create(ctx context.Context, ch *models.Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	// The pending-pair key is the uniqueness constraint: SETNX either claims
	// the slot or proves a pending challenge already exists. Its TTL tracks
	// the challenge validity window so an expired record never blocks reissue.
	pairKey := makePendingPairKey(ch.NodeID, ch.RequesterID)
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired at creation")
	}

	ok, err := r.client.SetNX(ctx, pairKey, ch.ID, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim pending slot: %w", err)
	}
	if !ok {
		return repository.ErrDuplicatePending
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, makeChallengeKey(ch.ID), data, 0)
	pipe.SAdd(ctx, keyOpenChallenges, ch.ID)
	pipe.SAdd(ctx, makeNodeOpenKey(ch.NodeID), ch.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		r.client.Del(ctx, pairKey)
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	data, err := r.client.Get(ctx, makeChallengeKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	var ch models.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &ch, nil
}

func (r *challengeRepository) UpdateStatusCAS(ctx context.Context, id string, from, to models.Status, mutate func(*models.Challenge)) (*models.Challenge, error) {
	key := makeChallengeKey(id)
	var updated *models.Challenge

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return repository.ErrChallengeNotFound
		}
		if err != nil {
			return err
		}

		var ch models.Challenge
		if err := json.Unmarshal(data, &ch); err != nil {
			return fmt.Errorf("failed to unmarshal challenge: %w", err)
		}
		if ch.Status != from {
			return repository.ErrStatusConflict
		}

		ch.Status = to
		if mutate != nil {
			mutate(&ch)
		}

		next, err := json.Marshal(&ch)
		if err != nil {
			return fmt.Errorf("failed to marshal challenge: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			if from == models.StatusPending {
				// Leaving pending frees the (node, requester) slot.
				pipe.Del(ctx, makePendingPairKey(ch.NodeID, ch.RequesterID))
			}
			if to.Terminal() {
				pipe.SRem(ctx, keyOpenChallenges, ch.ID)
				pipe.SRem(ctx, makeNodeOpenKey(ch.NodeID), ch.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = &ch
		return nil
	}

	err := r.client.Watch(ctx, txf, key)
	if err == redis.TxFailedErr {
		// A concurrent writer changed the record between read and write.
		// Only the first transition wins.
		return nil, repository.ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *challengeRepository) ListOpenByNode(ctx context.Context, nodeID string) ([]*models.Challenge, error) {
	ids, err := r.client.SMembers(ctx, makeNodeOpenKey(nodeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list node challenges: %w", err)
	}

	challenges := make([]*models.Challenge, 0, len(ids))
	for _, id := range ids {
		ch, err := r.GetByID(ctx, id)
		if err == repository.ErrChallengeNotFound {
			r.client.SRem(ctx, makeNodeOpenKey(nodeID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, ch)
	}
	return challenges, nil
}

func (r *challengeRepository) ListOpenIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, keyOpenChallenges).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open challenges: %w", err)
	}
	return ids, nil
}

type bindingRepository struct {
	client *redisplatform.Client
}

func NewBindingRepository(client *redisplatform.Client) repository.BindingRepository {
	return &bindingRepository{client: client}
}

func (r *bindingRepository) Claim(ctx context.Context, b *models.VerifiedBinding) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal binding: %w", err)
	}

	// SETNX makes the first approval win; competitors observe ErrNodeClaimed.
	ok, err := r.client.SetNX(ctx, makeBindingKey(b.NodeID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim binding: %w", err)
	}
	if !ok {
		return repository.ErrNodeClaimed
	}
	return nil
}

func (r *bindingRepository) Get(ctx context.Context, nodeID string) (*models.VerifiedBinding, error) {
	data, err := r.client.Get(ctx, makeBindingKey(nodeID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding: %w", err)
	}

	var b models.VerifiedBinding
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal binding: %w", err)
	}
	return &b, nil
}
