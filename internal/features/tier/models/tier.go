package models

// Tier is a node's reputation label.
type Tier string

const (
	TierDiamond  Tier = "diamond"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierStandard Tier = "standard"
)

// VersionStatus classifies a node's client version against the deployment's
// current and minimum acceptable versions.
type VersionStatus string

const (
	VersionCurrent  VersionStatus = "current"
	VersionOutdated VersionStatus = "outdated"
	VersionCritical VersionStatus = "critical"
)

// Assessment is a pure projection of verification and liveness facts. It is
// recomputed on demand and never stored.
type Assessment struct {
	NodeID        string        `json:"node_id"`
	Tier          Tier          `json:"tier"`
	VersionStatus VersionStatus `json:"version_status"`
}

// Input is the fact set the scorer evaluates.
type Input struct {
	Verified         bool
	UptimePercentage float64
	AgeInDays        int
	CurrentVersion   bool
	TipsEnabled      bool
}
