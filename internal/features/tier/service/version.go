package service

import (
	"fmt"
	"strconv"
	"strings"

	"nodeproof-backend/internal/features/tier/models"
)

// VersionConfig pins the deployment's notion of current and minimum
// acceptable client versions.
type VersionConfig struct {
	Current string
	Minimum string
}

type version struct {
	major, minor int
}

// parseVersion reads the major and minor components of a
// "major.minor[.patch]" string. The patch component is ignored on purpose:
// patch releases do not affect currency classification.
func parseVersion(s string) (version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return version{}, fmt.Errorf("version %q lacks a minor component", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return version{}, fmt.Errorf("invalid major component in %q", s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return version{}, fmt.Errorf("invalid minor component in %q", s)
	}
	return version{major: major, minor: minor}, nil
}

func (v version) compare(other version) int {
	if v.major != other.major {
		if v.major < other.major {
			return -1
		}
		return 1
	}
	if v.minor != other.minor {
		if v.minor < other.minor {
			return -1
		}
		return 1
	}
	return 0
}

// ClassifyVersion compares the observed version against the configured
// current and minimum versions on (major, minor) only.
func ClassifyVersion(observed string, cfg VersionConfig) models.VersionStatus {
	obs, err := parseVersion(observed)
	if err != nil {
		// An unparseable observed version cannot be proven current nor
		// below minimum.
		return models.VersionOutdated
	}

	if current, err := parseVersion(cfg.Current); err == nil && obs.compare(current) >= 0 {
		return models.VersionCurrent
	}
	if minimum, err := parseVersion(cfg.Minimum); err == nil && obs.compare(minimum) < 0 {
		return models.VersionCritical
	}
	return models.VersionOutdated
}
