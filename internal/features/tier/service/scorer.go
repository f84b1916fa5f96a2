package service

import (
	"nodeproof-backend/internal/features/tier/models"
)

// Requirement is one tier's thresholds. Requirements are evaluated in order
// from most to least exclusive and the first full match wins, so the sets need
// not be mutually exclusive; the ordering alone enforces precedence.
type Requirement struct {
	Tier                  models.Tier
	RequireVerified       bool
	MinUptimePercentage   float64
	MinAgeDays            int
	RequireCurrentVersion bool
	RequireTipsEnabled    bool
}

// DefaultRequirements is the standard tier ladder. Reordering entries changes
// behavior.
func DefaultRequirements() []Requirement {
	return []Requirement{
		{Tier: models.TierDiamond, RequireVerified: true, MinUptimePercentage: 99.9, MinAgeDays: 90, RequireCurrentVersion: true, RequireTipsEnabled: true},
		{Tier: models.TierGold, RequireVerified: true, MinUptimePercentage: 99.0, MinAgeDays: 60, RequireCurrentVersion: true},
		{Tier: models.TierSilver, RequireVerified: true, MinUptimePercentage: 98.0, MinAgeDays: 30},
		{Tier: models.TierBronze, RequireVerified: true, MinUptimePercentage: 95.0, MinAgeDays: 7},
	}
}

// Scorer maps verification and liveness facts to a tier. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	requirements []Requirement
}

func NewScorer(requirements []Requirement) *Scorer {
	if requirements == nil {
		requirements = DefaultRequirements()
	}
	return &Scorer{requirements: requirements}
}

// Calculate returns the first tier whose thresholds the input satisfies, or
// standard when none match.
func (s *Scorer) Calculate(in models.Input) models.Tier {
	for _, req := range s.requirements {
		if s.satisfies(in, req) {
			return req.Tier
		}
	}
	return models.TierStandard
}

func (s *Scorer) satisfies(in models.Input, req Requirement) bool {
	if req.RequireVerified && !in.Verified {
		return false
	}
	if in.UptimePercentage < req.MinUptimePercentage {
		return false
	}
	if in.AgeInDays < req.MinAgeDays {
		return false
	}
	if req.RequireCurrentVersion && !in.CurrentVersion {
		return false
	}
	if req.RequireTipsEnabled && !in.TipsEnabled {
		return false
	}
	return true
}
