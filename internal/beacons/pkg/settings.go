package pkg

import (
	"errors"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// Name is the kind identifier of this beacon.
const Name = "pkg"

// Settings is the merged and typed configuration of the beacon.
type Settings struct {
	// Packages are the package names to watch.
	Packages []string
	// Refresh forces a package metadata refresh before looking for upgrades.
	Refresh bool
}

// Diagnostics returned by Validate; they are shown to operators verbatim.
//
//nolint:staticcheck // Messages are user facing sentences.
var (
	errPkgsRequired   = errors.New("Configuration for pkg beacon requires list of pkgs.")
	errRefreshNotBool = errors.New("Configuration for pkg beacon refresh must be a boolean.")
)

// Validate checks the beacon configuration.
func Validate(cfg beacon.ConfigList) (bool, string) {
	if _, err := ParseSettings(cfg); err != nil {
		return false, err.Error()
	}

	return true, beacon.ValidMessage
}

// ParseSettings merges the configuration list and converts it into Settings.
func ParseSettings(cfg beacon.ConfigList) (*Settings, error) {
	merged := cfg.Merge()

	raw, ok := merged["pkgs"]
	if !ok {
		return nil, errPkgsRequired
	}

	packages, ok := beacon.ToStringList(raw)
	if !ok {
		return nil, errPkgsRequired
	}

	settings := &Settings{
		Packages: packages,
	}

	if raw, ok := merged["refresh"]; ok {
		settings.Refresh, ok = beacon.ToBool(raw)
		if !ok {
			return nil, errRefreshNotBool
		}
	}

	return settings, nil
}
