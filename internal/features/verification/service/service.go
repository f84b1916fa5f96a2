package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/common/ratelimit"
	"nodeproof-backend/internal/features/moderation"
	nodemodels "nodeproof-backend/internal/features/node/models"
	noderepo "nodeproof-backend/internal/features/node/repository"
	"nodeproof-backend/internal/features/verification/models"
	"nodeproof-backend/internal/features/verification/repository"
)

const (
	actionInitiate = "verification:initiate"
	actionComplete = "verification:complete"
)

// Config is the engine's explicit configuration, passed at construction.
// There is no process-wide mutable state.
type Config struct {
	EnabledMethods []models.Method
	ChallengeTTL   time.Duration
	Chain          ChainParams
	DNS            DNSConfig
	InitiateLimit  ratelimit.Limit
	CompleteLimit  ratelimit.Limit
}

func (c Config) methodEnabled(m models.Method) bool {
	for _, enabled := range c.EnabledMethods {
		if enabled == m {
			return true
		}
	}
	return false
}

// Engine orchestrates challenge issuance, proof validation and the
// verification state machine.
type Engine struct {
	cfg        Config
	challenges repository.ChallengeRepository
	bindings   repository.BindingRepository
	nodes      noderepo.FactsRepository
	validators map[models.Method]Validator
	limiter    ratelimit.Limiter
	queue      moderation.Queue
	clock      clock.Clock
	logger     zerolog.Logger
}

func NewEngine(
	cfg Config,
	challenges repository.ChallengeRepository,
	bindings repository.BindingRepository,
	nodes noderepo.FactsRepository,
	limiter ratelimit.Limiter,
	queue moderation.Queue,
	clk clock.Clock,
	logger zerolog.Logger,
) *Engine {
	if clk == nil {
		clk = clock.New()
	}

	validators := map[models.Method]Validator{
		models.MethodMessageSign: NewMessageSignValidator(cfg.Chain),
		models.MethodDNSTxt:      NewDNSTxtValidator(cfg.DNS),
	}

	return &Engine{
		cfg:        cfg,
		challenges: challenges,
		bindings:   bindings,
		nodes:      nodes,
		validators: validators,
		limiter:    limiter,
		queue:      queue,
		clock:      clk,
		logger:     logger,
	}
}

// Initiate issues a new challenge for (node, requester, method).
func (e *Engine) Initiate(ctx context.Context, requesterID int64, nodeID string, method models.Method) (*models.InitiateResponse, error) {
	if err := e.checkLimit(ctx, requesterID, actionInitiate, e.cfg.InitiateLimit); err != nil {
		return nil, err
	}

	if !method.Valid() || !e.cfg.methodEnabled(method) {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidMethod,
			"verification method %q is not enabled", method)
	}

	binding, err := e.bindings.Get(ctx, nodeID)
	if err != nil {
		return nil, apperrors.NewStorageError("get binding", err)
	}
	if binding != nil {
		return nil, apperrors.New(apperrors.ErrCodeAlreadyVerified,
			"this node already has a verified owner")
	}

	token, err := newToken(method)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to generate challenge token")
	}

	now := e.clock.Now().UTC()
	ch := &models.Challenge{
		ID:          uuid.New().String(),
		NodeID:      nodeID,
		RequesterID: requesterID,
		Method:      method,
		Token:       token,
		Status:      models.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.cfg.ChallengeTTL),
	}

	if err := e.challenges.Create(ctx, ch); err != nil {
		if err == repository.ErrDuplicatePending {
			return nil, apperrors.New(apperrors.ErrCodeDuplicatePending,
				"a pending challenge already exists for this node; complete or cancel it first")
		}
		return nil, apperrors.NewStorageError("create challenge", err)
	}

	e.logger.Info().
		Str("challenge_id", ch.ID).
		Str("node_id", nodeID).
		Int64("requester_id", requesterID).
		Str("method", string(method)).
		Msg("Challenge issued")

	return &models.InitiateResponse{
		ChallengeID:  ch.ID,
		Token:        ch.Token,
		Instructions: instructions(method, ch.Token),
		ExpiresAt:    ch.ExpiresAt,
	}, nil
}

// Get returns the challenge's current state. Expiry is resolved lazily, so a
// read alone moves a stale pending challenge to expired exactly once.
func (e *Engine) Get(ctx context.Context, id string) (*models.Challenge, error) {
	return e.getResolved(ctx, id)
}

// Complete validates a submitted proof and drives the state machine to
// pending_approval or failed. A failed challenge is terminal; the requester
// must issue a new one.
func (e *Engine) Complete(ctx context.Context, requesterID int64, id, proof string) (*models.StatusResponse, error) {
	if err := e.checkLimit(ctx, requesterID, actionComplete, e.cfg.CompleteLimit); err != nil {
		return nil, err
	}

	ch, err := e.getResolved(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.RequesterID != requesterID {
		return nil, apperrors.NewUnauthorizedError("challenge belongs to another requester")
	}
	if ch.Status == models.StatusExpired {
		return nil, apperrors.New(apperrors.ErrCodeChallengeExpired,
			"challenge has expired; issue a new one")
	}
	if ch.Status != models.StatusPending {
		return nil, apperrors.Newf(apperrors.ErrCodeChallengeNotPending,
			"challenge is %s and no longer accepts proofs", ch.Status)
	}

	validator, ok := e.validators[ch.Method]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidMethod,
			"method %q is verified automatically by the crawler; no proof submission is needed", ch.Method)
	}

	nodeIP := ""
	if facts, err := e.nodes.Get(ctx, ch.NodeID); err == nil {
		nodeIP = facts.IP
	}

	res := validator.Validate(ctx, ch, proof, nodeIP)
	if !res.Valid {
		if _, err := e.transition(ctx, ch, models.StatusPending, models.StatusFailed, func(c *models.Challenge) {
			c.Proof = proof
			c.FailureReason = res.Reason
		}); err != nil {
			return nil, err
		}
		return nil, apperrors.New(res.Code, res.Reason).WithDetail("challenge_id", ch.ID)
	}

	updated, err := e.transition(ctx, ch, models.StatusPending, models.StatusPendingApproval, func(c *models.Challenge) {
		c.Proof = proof
	})
	if err != nil {
		return nil, err
	}

	e.enqueueForModeration(ctx, updated)

	return &models.StatusResponse{
		ChallengeID: updated.ID,
		Status:      updated.Status,
		Message:     "Proof accepted; awaiting review",
	}, nil
}

// Cancel lets the original requester withdraw a non-terminal challenge.
// A second cancel reports InvalidState rather than succeeding twice.
func (e *Engine) Cancel(ctx context.Context, requesterID int64, id string) (*models.StatusResponse, error) {
	ch, err := e.getResolved(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch.RequesterID != requesterID {
		return nil, apperrors.NewUnauthorizedError("only the original requester may cancel a challenge")
	}
	if ch.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidState,
			"challenge is already %s", ch.Status)
	}

	updated, err := e.transition(ctx, ch, ch.Status, models.StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	return &models.StatusResponse{ChallengeID: updated.ID, Status: updated.Status}, nil
}

// HandleDecision applies a moderation outcome. Approval claims the node's
// binding; the first approval wins and competitors are auto-rejected.
func (e *Engine) HandleDecision(ctx context.Context, challengeID string, approved bool) error {
	ch, err := e.getResolved(ctx, challengeID)
	if err != nil {
		return err
	}
	if ch.Status != models.StatusPendingApproval {
		return apperrors.Newf(apperrors.ErrCodeInvalidState,
			"challenge is %s, not awaiting approval", ch.Status)
	}

	if !approved {
		_, err := e.transition(ctx, ch, models.StatusPendingApproval, models.StatusRejected, func(c *models.Challenge) {
			c.FailureReason = "rejected by moderation"
		})
		return err
	}

	now := e.clock.Now().UTC()
	err = e.bindings.Claim(ctx, &models.VerifiedBinding{
		NodeID:      ch.NodeID,
		RequesterID: ch.RequesterID,
		Method:      ch.Method,
		VerifiedAt:  now,
	})
	if err == repository.ErrNodeClaimed {
		// Another requester's approval landed first.
		_, terr := e.transition(ctx, ch, models.StatusPendingApproval, models.StatusRejected, func(c *models.Challenge) {
			c.FailureReason = "node already claimed by another verification"
		})
		if terr != nil {
			return terr
		}
		return apperrors.New(apperrors.ErrCodeNodeAlreadyClaimed,
			"node was already claimed by another approved verification")
	}
	if err != nil {
		return apperrors.NewStorageError("claim binding", err)
	}

	if _, err := e.transition(ctx, ch, models.StatusPendingApproval, models.StatusApproved, func(c *models.Challenge) {
		c.VerifiedAt = &now
	}); err != nil {
		return err
	}

	e.rejectCompetitors(ctx, ch)

	e.logger.Info().
		Str("challenge_id", ch.ID).
		Str("node_id", ch.NodeID).
		Int64("requester_id", ch.RequesterID).
		Msg("Node ownership approved")
	return nil
}

// HandleObservation folds a crawler report into node facts and resolves any
// automatic-method challenges the observation satisfies.
func (e *Engine) HandleObservation(ctx context.Context, obs *nodemodels.Observation) error {
	if _, err := e.nodes.Apply(ctx, obs); err != nil {
		return apperrors.NewStorageError("apply observation", err)
	}

	open, err := e.challenges.ListOpenByNode(ctx, obs.NodeID)
	if err != nil {
		return apperrors.NewStorageError("list node challenges", err)
	}

	for _, ch := range open {
		ch, err := e.resolve(ctx, ch)
		if err != nil || ch.Status != models.StatusPending || ch.Method.Interactive() {
			continue
		}

		evidence, matched := matchObservation(ch, obs)
		if !matched {
			continue
		}

		updated, err := e.transition(ctx, ch, models.StatusPending, models.StatusPendingApproval, func(c *models.Challenge) {
			c.Proof = evidence
		})
		if err != nil {
			continue
		}
		e.enqueueForModeration(ctx, updated)
	}
	return nil
}

// SweepExpired walks open challenges and applies lazy expiry to each. It is
// idempotent: a challenge already expired by a concurrent reader is a no-op.
func (e *Engine) SweepExpired(ctx context.Context) error {
	ids, err := e.challenges.ListOpenIDs(ctx)
	if err != nil {
		return apperrors.NewStorageError("list open challenges", err)
	}
	for _, id := range ids {
		if _, err := e.getResolved(ctx, id); err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeChallengeNotFound {
				continue
			}
			e.logger.Warn().Err(err).Str("challenge_id", id).Msg("Expiry sweep failed for challenge")
		}
	}
	return nil
}

func matchObservation(ch *models.Challenge, obs *nodemodels.Observation) (string, bool) {
	switch ch.Method {
	case models.MethodUserAgent:
		if obs.UserAgent != "" && containsToken(obs.UserAgent, ch.Token) {
			return obs.UserAgent, true
		}
	case models.MethodPortChallenge:
		if obs.PortReachable {
			return "port reachable at " + obs.LastSeenAt.UTC().Format(time.RFC3339), true
		}
	case models.MethodHTTPFile:
		if obs.HTTPFileContent != "" && obs.HTTPFileContent == ch.Token {
			return obs.HTTPFileContent, true
		}
	}
	return "", false
}

func (e *Engine) checkLimit(ctx context.Context, requesterID int64, action string, limit ratelimit.Limit) error {
	identity := strconv.FormatInt(requesterID, 10)
	res, err := e.limiter.Check(ctx, identity, action, limit)
	if err != nil {
		return apperrors.NewStorageError("rate limit check", err)
	}
	if !res.Allowed {
		return apperrors.NewRateLimitError(action, res.ResetAt)
	}
	return nil
}

// getResolved loads a challenge and settles expiry before anything else looks
// at it. All read and write paths come through here, so expiry logic lives in
// exactly one place.
func (e *Engine) getResolved(ctx context.Context, id string) (*models.Challenge, error) {
	ch, err := e.challenges.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrChallengeNotFound {
			return nil, apperrors.New(apperrors.ErrCodeChallengeNotFound, "challenge not found")
		}
		return nil, apperrors.NewStorageError("get challenge", err)
	}
	return e.resolve(ctx, ch)
}

func (e *Engine) resolve(ctx context.Context, ch *models.Challenge) (*models.Challenge, error) {
	if ch.Status.Terminal() || !ch.Expired(e.clock.Now()) {
		return ch, nil
	}

	updated, err := e.challenges.UpdateStatusCAS(ctx, ch.ID, ch.Status, models.StatusExpired, nil)
	if err == repository.ErrStatusConflict {
		// A concurrent reader expired it, or another transition won; the
		// stored state is authoritative either way.
		return e.challenges.GetByID(ctx, ch.ID)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("expire challenge", err)
	}
	return updated, nil
}

// transition applies one CAS state change and maps a lost race to the precise
// caller-facing error.
func (e *Engine) transition(ctx context.Context, ch *models.Challenge, from, to models.Status, mutate func(*models.Challenge)) (*models.Challenge, error) {
	updated, err := e.challenges.UpdateStatusCAS(ctx, ch.ID, from, to, mutate)
	if err == repository.ErrStatusConflict {
		current, gerr := e.getResolved(ctx, ch.ID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == models.StatusExpired {
			return nil, apperrors.New(apperrors.ErrCodeChallengeExpired,
				"challenge expired before the operation completed")
		}
		return nil, apperrors.Newf(apperrors.ErrCodeChallengeNotPending,
			"challenge is %s; the operation lost to a concurrent update", current.Status)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("update challenge status", err)
	}
	return updated, nil
}

// rejectCompetitors closes other requesters' open challenges for a node once
// its ownership is settled.
func (e *Engine) rejectCompetitors(ctx context.Context, winner *models.Challenge) {
	open, err := e.challenges.ListOpenByNode(ctx, winner.NodeID)
	if err != nil {
		e.logger.Warn().Err(err).Str("node_id", winner.NodeID).Msg("Failed to list competing challenges")
		return
	}
	for _, ch := range open {
		if ch.ID == winner.ID || ch.Status.Terminal() {
			continue
		}
		_, err := e.challenges.UpdateStatusCAS(ctx, ch.ID, ch.Status, models.StatusRejected, func(c *models.Challenge) {
			c.FailureReason = "node already claimed by another verification"
		})
		if err != nil && err != repository.ErrStatusConflict {
			e.logger.Warn().Err(err).Str("challenge_id", ch.ID).Msg("Failed to reject competing challenge")
		}
	}
}

// enqueueForModeration hands a passed validation to the moderation
// collaborator. Enqueue failure never rolls back the transition; the item can
// be re-enqueued by an external reconciliation job.
func (e *Engine) enqueueForModeration(ctx context.Context, ch *models.Challenge) {
	item := &moderation.Item{
		ItemType: moderation.ItemTypeVerification,
		ItemID:   ch.ID,
		UserID:   ch.RequesterID,
		ContentData: moderation.ContentData{
			NodeID:    ch.NodeID,
			Method:    string(ch.Method),
			Challenge: ch.Token,
			Proof:     ch.Proof,
			Passed:    true,
		},
	}
	if err := e.queue.Enqueue(ctx, item); err != nil {
		e.logger.Error().Err(err).
			Str("challenge_id", ch.ID).
			Msg("Failed to enqueue moderation item")
	}
}

func containsToken(haystack, token string) bool {
	return token != "" && strings.Contains(haystack, token)
}
