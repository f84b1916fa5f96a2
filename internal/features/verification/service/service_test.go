package service

import (
	"context"
	"encoding/base64"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/common/ratelimit"
	"nodeproof-backend/internal/features/moderation"
	nodemodels "nodeproof-backend/internal/features/node/models"
	noderepo "nodeproof-backend/internal/features/node/repository"
	"nodeproof-backend/internal/features/verification/models"
	"nodeproof-backend/internal/features/verification/repository"
)

// --- in-memory fakes mirroring the redis repositories' semantics ---

type memChallengeRepo struct {
	mu          sync.Mutex
	byID        map[string]*models.Challenge
	pendingPair map[string]string
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{
		byID:        make(map[string]*models.Challenge),
		pendingPair: make(map[string]string),
	}
}

func pairKey(nodeID string, requesterID int64) string {
	return nodeID + "|" + strconv.FormatInt(requesterID, 10)
}

func (r *memChallengeRepo) Create(_ context.Context, ch *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(ch.NodeID, ch.RequesterID)
	if _, exists := r.pendingPair[key]; exists {
		return repository.ErrDuplicatePending
	}
	r.pendingPair[key] = ch.ID
	cp := *ch
	r.byID[ch.ID] = &cp
	return nil
}

func (r *memChallengeRepo) GetByID(_ context.Context, id string) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}
	cp := *ch
	return &cp, nil
}

func (r *memChallengeRepo) UpdateStatusCAS(_ context.Context, id string, from, to models.Status, mutate func(*models.Challenge)) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}
	if ch.Status != from {
		return nil, repository.ErrStatusConflict
	}

	cp := *ch
	cp.Status = to
	if mutate != nil {
		mutate(&cp)
	}
	r.byID[id] = &cp
	if from == models.StatusPending {
		delete(r.pendingPair, pairKey(cp.NodeID, cp.RequesterID))
	}
	out := cp
	return &out, nil
}

func (r *memChallengeRepo) ListOpenByNode(_ context.Context, nodeID string) ([]*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Challenge
	for _, ch := range r.byID {
		if ch.NodeID == nodeID && !ch.Status.Terminal() {
			cp := *ch
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memChallengeRepo) ListOpenIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for id, ch := range r.byID {
		if !ch.Status.Terminal() {
			out = append(out, id)
		}
	}
	return out, nil
}

type memBindingRepo struct {
	mu   sync.Mutex
	byID map[string]*models.VerifiedBinding
}

func newMemBindingRepo() *memBindingRepo {
	return &memBindingRepo{byID: make(map[string]*models.VerifiedBinding)}
}

func (r *memBindingRepo) Claim(_ context.Context, b *models.VerifiedBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[b.NodeID]; exists {
		return repository.ErrNodeClaimed
	}
	cp := *b
	r.byID[b.NodeID] = &cp
	return nil
}

func (r *memBindingRepo) Get(_ context.Context, nodeID string) (*models.VerifiedBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[nodeID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

type memFactsRepo struct {
	mu   sync.Mutex
	byID map[string]*nodemodels.Facts
}

func newMemFactsRepo() *memFactsRepo {
	return &memFactsRepo{byID: make(map[string]*nodemodels.Facts)}
}

func (r *memFactsRepo) Get(_ context.Context, nodeID string) (*nodemodels.Facts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[nodeID]
	if !ok {
		return nil, noderepo.ErrFactsNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFactsRepo) Apply(_ context.Context, obs *nodemodels.Observation) (*nodemodels.Facts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.byID[obs.NodeID]
	if !ok {
		f = &nodemodels.Facts{NodeID: obs.NodeID, FirstSeenAt: obs.LastSeenAt}
		r.byID[obs.NodeID] = f
	}
	f.IP = obs.IP
	f.UserAgent = obs.UserAgent
	f.Reachable = obs.PortReachable
	f.UptimePercentage = obs.UptimePercentage
	f.Version = obs.Version
	f.TipsEnabled = obs.TipsEnabled
	f.LastSeenAt = obs.LastSeenAt
	cp := *f
	return &cp, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items []*moderation.Item
}

func (q *fakeQueue) Enqueue(_ context.Context, item *moderation.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// --- harness ---

type harness struct {
	engine     *Engine
	challenges *memChallengeRepo
	bindings   *memBindingRepo
	facts      *memFactsRepo
	queue      *fakeQueue
	clock      *clock.Mock
}

func newHarness(t *testing.T, cfg ...func(*Config)) *harness {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	config := Config{
		EnabledMethods: []models.Method{
			models.MethodMessageSign, models.MethodDNSTxt,
			models.MethodUserAgent, models.MethodPortChallenge, models.MethodHTTPFile,
		},
		ChallengeTTL:  24 * time.Hour,
		Chain:         testChain,
		DNS:           DNSConfig{Resolver: "127.0.0.1:53", Timeout: time.Second},
		InitiateLimit: ratelimit.Limit{Max: 100, Window: time.Hour},
		CompleteLimit: ratelimit.Limit{Max: 100, Window: time.Hour},
	}
	for _, fn := range cfg {
		fn(&config)
	}

	h := &harness{
		challenges: newMemChallengeRepo(),
		bindings:   newMemBindingRepo(),
		facts:      newMemFactsRepo(),
		queue:      &fakeQueue{},
		clock:      mock,
	}
	h.engine = NewEngine(
		config,
		h.challenges,
		h.bindings,
		h.facts,
		ratelimit.NewMemoryLimiter(mock),
		h.queue,
		mock,
		zerolog.Nop(),
	)
	return h
}

const (
	nodeA      = "203.0.113.7:8333"
	requester1 = int64(1)
	requester2 = int64(2)
)

func mustInitiate(t *testing.T, h *harness, requesterID int64, method models.Method) *models.InitiateResponse {
	t.Helper()
	resp, err := h.engine.Initiate(context.Background(), requesterID, nodeA, method)
	require.NoError(t, err)
	return resp
}

func signedProof(t *testing.T, token string) string {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	digest := signedMessageHash(testChain.MessageMagic, token)
	sig := secpecdsa.SignCompact(priv, digest, true)
	return EncodeAddress(testChain, priv.PubKey(), true) + ":" + base64.StdEncoding.EncodeToString(sig)
}

// --- tests ---

func TestInitiate_IssuesChallenge(t *testing.T) {
	h := newHarness(t)

	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)
	assert.NotEmpty(t, resp.ChallengeID)
	assert.Contains(t, resp.Token, "node-verify:")
	assert.Contains(t, resp.Instructions, resp.Token)
	assert.Equal(t, h.clock.Now().UTC().Add(24*time.Hour), resp.ExpiresAt)

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ch.Status)
}

func TestInitiate_DuplicatePending(t *testing.T) {
	h := newHarness(t)
	mustInitiate(t, h, requester1, models.MethodMessageSign)

	_, err := h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodDNSTxt)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicatePending, apperrors.CodeOf(err))
}

func TestInitiate_SecondRequesterAllowed(t *testing.T) {
	h := newHarness(t)
	mustInitiate(t, h, requester1, models.MethodMessageSign)

	// Different requesters may race for the same node until one is approved.
	_, err := h.engine.Initiate(context.Background(), requester2, nodeA, models.MethodMessageSign)
	assert.NoError(t, err)
}

func TestInitiate_AlreadyVerified(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.bindings.Claim(context.Background(), &models.VerifiedBinding{
		NodeID: nodeA, RequesterID: requester2, Method: models.MethodMessageSign,
	}))

	_, err := h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodMessageSign)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAlreadyVerified, apperrors.CodeOf(err))
}

func TestInitiate_DisabledMethod(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.EnabledMethods = []models.Method{models.MethodMessageSign}
	})

	_, err := h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodDNSTxt)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMethod, apperrors.CodeOf(err))
}

func TestInitiate_RateLimited(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.InitiateLimit = ratelimit.Limit{Max: 2, Window: time.Hour}
	})

	mustInitiate(t, h, requester1, models.MethodMessageSign)
	_, err := h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodMessageSign)
	require.Error(t, err) // duplicate pending, still consumes budget

	_, err = h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodMessageSign)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRateLimit, appErr.Code)
	assert.Contains(t, appErr.Details, "reset_at")
}

func TestComplete_MessageSignHappyPath(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	status, err := h.engine.Complete(context.Background(), requester1, resp.ChallengeID, signedProof(t, resp.Token))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, status.Status)
	assert.Equal(t, 1, h.queue.len())

	item := h.queue.items[0]
	assert.Equal(t, moderation.ItemTypeVerification, item.ItemType)
	assert.Equal(t, resp.ChallengeID, item.ItemID)
	assert.True(t, item.ContentData.Passed)
}

func TestComplete_InvalidSignatureIsTerminal(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	// Sign a different token so recovery yields a different address.
	proof := signedProof(t, "node-verify:ffffffffffffffffffffffffffffffff")
	_, err := h.engine.Complete(context.Background(), requester1, resp.ChallengeID, proof)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSignatureInvalid, apperrors.CodeOf(err))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, ch.Status)
	assert.NotEmpty(t, ch.FailureReason)

	// failed is terminal: a correct proof afterwards must be rejected.
	_, err = h.engine.Complete(context.Background(), requester1, resp.ChallengeID, signedProof(t, resp.Token))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeChallengeNotPending, apperrors.CodeOf(err))
}

func TestComplete_WrongRequesterDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	_, err := h.engine.Complete(context.Background(), requester2, resp.ChallengeID, signedProof(t, resp.Token))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ch.Status)
}

func TestComplete_AutomaticMethodRejectsSubmission(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodUserAgent)

	_, err := h.engine.Complete(context.Background(), requester1, resp.ChallengeID, "anything")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMethod, apperrors.CodeOf(err))
}

func TestComplete_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Complete(context.Background(), requester1, "missing", "proof")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeChallengeNotFound, apperrors.CodeOf(err))
}

func TestComplete_ConcurrentOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)
	proof := signedProof(t, resp.Token)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.Complete(context.Background(), requester1, resp.ChallengeID, proof)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one completion must win the CAS")
	assert.Equal(t, 1, h.queue.len(), "only the winning completion enqueues moderation")
}

func TestCancel_Idempotence(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	status, err := h.engine.Cancel(context.Background(), requester1, resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, status.Status)

	_, err = h.engine.Cancel(context.Background(), requester1, resp.ChallengeID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))
}

func TestCancel_OtherRequesterUnauthorized(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	_, err := h.engine.Cancel(context.Background(), requester2, resp.ChallengeID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestCancel_FreesPendingSlot(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	_, err := h.engine.Cancel(context.Background(), requester1, resp.ChallengeID)
	require.NoError(t, err)

	_, err = h.engine.Initiate(context.Background(), requester1, nodeA, models.MethodMessageSign)
	assert.NoError(t, err, "cancelling must free the pending slot")
}

func TestExpiry_LazyOnRead(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	h.clock.Add(24*time.Hour + time.Second)

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, ch.Status)

	// A second read observes the already-terminal state; no double expiry.
	ch, err = h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, ch.Status)

	_, err = h.engine.Complete(context.Background(), requester1, resp.ChallengeID, signedProof(t, resp.Token))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeChallengeExpired, apperrors.CodeOf(err))
}

func TestSweepExpired(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	h.clock.Add(25 * time.Hour)
	require.NoError(t, h.engine.SweepExpired(context.Background()))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, ch.Status)
}

func TestApprove_CreatesBindingAndRejectsCompetitors(t *testing.T) {
	h := newHarness(t)

	r1 := mustInitiate(t, h, requester1, models.MethodMessageSign)
	r2 := mustInitiate(t, h, requester2, models.MethodMessageSign)

	_, err := h.engine.Complete(context.Background(), requester1, r1.ChallengeID, signedProof(t, r1.Token))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleDecision(context.Background(), r1.ChallengeID, true))

	ch1, err := h.engine.Get(context.Background(), r1.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, ch1.Status)
	require.NotNil(t, ch1.VerifiedAt)

	binding, err := h.bindings.Get(context.Background(), nodeA)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, requester1, binding.RequesterID)

	// The losing requester's challenge is auto-rejected.
	ch2, err := h.engine.Get(context.Background(), r2.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, ch2.Status)

	// And the node can no longer accept new challenges.
	_, err = h.engine.Initiate(context.Background(), requester2, nodeA, models.MethodMessageSign)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAlreadyVerified, apperrors.CodeOf(err))
}

func TestApprove_SecondApprovalLoses(t *testing.T) {
	h := newHarness(t)

	r1 := mustInitiate(t, h, requester1, models.MethodMessageSign)
	r2 := mustInitiate(t, h, requester2, models.MethodMessageSign)

	_, err := h.engine.Complete(context.Background(), requester1, r1.ChallengeID, signedProof(t, r1.Token))
	require.NoError(t, err)
	_, err = h.engine.Complete(context.Background(), requester2, r2.ChallengeID, signedProof(t, r2.Token))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleDecision(context.Background(), r1.ChallengeID, true))

	// r2 was auto-rejected; a later decision on it reports the state.
	err = h.engine.HandleDecision(context.Background(), r2.ChallengeID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))

	binding, err := h.bindings.Get(context.Background(), nodeA)
	require.NoError(t, err)
	assert.Equal(t, requester1, binding.RequesterID, "first approval wins")
}

func TestApprove_ClaimConflictRejectsChallenge(t *testing.T) {
	h := newHarness(t)

	r1 := mustInitiate(t, h, requester1, models.MethodMessageSign)
	_, err := h.engine.Complete(context.Background(), requester1, r1.ChallengeID, signedProof(t, r1.Token))
	require.NoError(t, err)

	// Another verification claimed the node out of band.
	require.NoError(t, h.bindings.Claim(context.Background(), &models.VerifiedBinding{
		NodeID: nodeA, RequesterID: requester2, Method: models.MethodDNSTxt,
	}))

	err = h.engine.HandleDecision(context.Background(), r1.ChallengeID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNodeAlreadyClaimed, apperrors.CodeOf(err))

	ch, err := h.engine.Get(context.Background(), r1.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, ch.Status)
}

func TestReject_Decision(t *testing.T) {
	h := newHarness(t)

	r1 := mustInitiate(t, h, requester1, models.MethodMessageSign)
	_, err := h.engine.Complete(context.Background(), requester1, r1.ChallengeID, signedProof(t, r1.Token))
	require.NoError(t, err)

	require.NoError(t, h.engine.HandleDecision(context.Background(), r1.ChallengeID, false))

	ch, err := h.engine.Get(context.Background(), r1.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, ch.Status)

	binding, err := h.bindings.Get(context.Background(), nodeA)
	require.NoError(t, err)
	assert.Nil(t, binding)
}

func TestObservation_ResolvesUserAgent(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodUserAgent)

	obs := &nodemodels.Observation{
		NodeID:     nodeA,
		IP:         "203.0.113.7",
		UserAgent:  "/Satoshi:0.21.0(" + resp.Token + ")/",
		LastSeenAt: h.clock.Now(),
	}
	require.NoError(t, h.engine.HandleObservation(context.Background(), obs))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, ch.Status)
	assert.Equal(t, 1, h.queue.len())

	facts, err := h.facts.Get(context.Background(), nodeA)
	require.NoError(t, err)
	assert.Equal(t, obs.UserAgent, facts.UserAgent)
}

func TestObservation_UserAgentWithoutTokenStaysPending(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodUserAgent)

	obs := &nodemodels.Observation{
		NodeID:     nodeA,
		UserAgent:  "/Satoshi:0.21.0/",
		LastSeenAt: h.clock.Now(),
	}
	require.NoError(t, h.engine.HandleObservation(context.Background(), obs))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ch.Status)
	assert.Equal(t, 0, h.queue.len())
}

func TestObservation_ResolvesPortChallenge(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodPortChallenge)

	obs := &nodemodels.Observation{
		NodeID:        nodeA,
		PortReachable: true,
		LastSeenAt:    h.clock.Now(),
	}
	require.NoError(t, h.engine.HandleObservation(context.Background(), obs))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, ch.Status)
}

func TestObservation_ResolvesHTTPFile(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodHTTPFile)

	obs := &nodemodels.Observation{
		NodeID:          nodeA,
		HTTPFileContent: resp.Token,
		LastSeenAt:      h.clock.Now(),
	}
	require.NoError(t, h.engine.HandleObservation(context.Background(), obs))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, ch.Status)
}

func TestObservation_IgnoresInteractiveMethods(t *testing.T) {
	h := newHarness(t)
	resp := mustInitiate(t, h, requester1, models.MethodMessageSign)

	obs := &nodemodels.Observation{
		NodeID:     nodeA,
		UserAgent:  resp.Token,
		LastSeenAt: h.clock.Now(),
	}
	require.NoError(t, h.engine.HandleObservation(context.Background(), obs))

	ch, err := h.engine.Get(context.Background(), resp.ChallengeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, ch.Status, "interactive methods require an explicit proof submission")
}
