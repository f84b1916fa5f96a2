package repository

import (
	"context"
	"errors"

	"nodeproof-backend/internal/features/verification/models"
)

var (
	// ErrChallengeNotFound is returned when no challenge exists for an ID.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrDuplicatePending is returned when a pending challenge already
	// exists for the same (node, requester) pair.
	ErrDuplicatePending = errors.New("pending challenge already exists")

	// ErrStatusConflict is returned when a conditional status update lost
	// the race: the stored status no longer matches the expected one.
	ErrStatusConflict = errors.New("challenge status changed concurrently")

	// ErrNodeClaimed is returned when a verified binding already exists
	// for the node.
	ErrNodeClaimed = errors.New("node already has a verified binding")
)

// ChallengeRepository persists challenges. Uniqueness of the pending
// (node, requester) pair is enforced at insert time, not by check-then-act.
type ChallengeRepository interface {
	// Create stores a new pending challenge. Returns ErrDuplicatePending
	// if the (node, requester) pair already holds a pending challenge.
	Create(ctx context.Context, ch *models.Challenge) error

	GetByID(ctx context.Context, id string) (*models.Challenge, error)

	// UpdateStatusCAS transitions the challenge from the expected status,
	// applying mutate to the record inside the same atomic update. It
	// returns ErrStatusConflict when another writer got there first, so
	// exactly one outcome wins per challenge.
	UpdateStatusCAS(ctx context.Context, id string, from, to models.Status, mutate func(*models.Challenge)) (*models.Challenge, error)

	// ListOpenByNode returns the node's challenges still in pending or
	// pending_approval state.
	ListOpenByNode(ctx context.Context, nodeID string) ([]*models.Challenge, error)

	// ListOpenIDs returns the IDs of all non-terminal challenges, used by
	// the periodic expiry sweep.
	ListOpenIDs(ctx context.Context) ([]string, error)
}

// BindingRepository persists verified bindings with node-level uniqueness.
type BindingRepository interface {
	// Claim stores the binding if and only if the node is unclaimed.
	// Returns ErrNodeClaimed otherwise; the first approval wins.
	Claim(ctx context.Context, b *models.VerifiedBinding) error

	// Get returns the node's binding, or nil when none exists.
	Get(ctx context.Context, nodeID string) (*models.VerifiedBinding, error)
}
