package repository

import (
	"context"
	"errors"

	"nodeproof-backend/internal/features/node/models"
)

// ErrFactsNotFound is returned when the crawler has not reported the node yet.
var ErrFactsNotFound = errors.New("node facts not found")

// FactsRepository stores the latest crawler snapshot per node.
type FactsRepository interface {
	Get(ctx context.Context, nodeID string) (*models.Facts, error)

	// Apply folds a crawler observation into the stored snapshot,
	// preserving the first-seen timestamp across updates.
	Apply(ctx context.Context, obs *models.Observation) (*models.Facts, error)
}
