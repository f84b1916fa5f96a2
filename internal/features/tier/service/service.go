package service

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	apperrors "nodeproof-backend/internal/common/errors"
	noderepo "nodeproof-backend/internal/features/node/repository"
	"nodeproof-backend/internal/features/tier/models"
	verificationrepo "nodeproof-backend/internal/features/verification/repository"
)

const hoursPerDay = 24

// Service assembles scorer input from the verification binding and the
// crawler's node facts, then projects the tier assessment.
type Service struct {
	scorer   *Scorer
	versions VersionConfig
	bindings verificationrepo.BindingRepository
	facts    noderepo.FactsRepository
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewService(
	scorer *Scorer,
	versions VersionConfig,
	bindings verificationrepo.BindingRepository,
	facts noderepo.FactsRepository,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		scorer:   scorer,
		versions: versions,
		bindings: bindings,
		facts:    facts,
		clock:    clk,
		logger:   logger,
	}
}

// Assess recomputes the node's tier assessment from current facts.
func (s *Service) Assess(ctx context.Context, nodeID string) (*models.Assessment, error) {
	facts, err := s.facts.Get(ctx, nodeID)
	if err == noderepo.ErrFactsNotFound {
		return nil, apperrors.New(apperrors.ErrCodeNotFound,
			"node has not been observed by the crawler yet")
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get node facts", err)
	}

	binding, err := s.bindings.Get(ctx, nodeID)
	if err != nil {
		return nil, apperrors.NewStorageError("get binding", err)
	}

	versionStatus := ClassifyVersion(facts.Version, s.versions)
	ageInDays := 0
	if !facts.FirstSeenAt.IsZero() {
		ageInDays = int(s.clock.Now().Sub(facts.FirstSeenAt).Hours() / hoursPerDay)
	}

	tier := s.scorer.Calculate(models.Input{
		Verified:         binding != nil,
		UptimePercentage: facts.UptimePercentage,
		AgeInDays:        ageInDays,
		CurrentVersion:   versionStatus == models.VersionCurrent,
		TipsEnabled:      facts.TipsEnabled,
	})

	return &models.Assessment{
		NodeID:        nodeID,
		Tier:          tier,
		VersionStatus: versionStatus,
	}, nil
}
