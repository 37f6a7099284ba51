package pkg

import (
	"context"
	"fmt"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/repository/state"
)

// Status is the upgrade status of one package.
type Status string

const (
	// StatusNotInstalled means the package is absent from the host.
	StatusNotInstalled Status = "not-installed"
	// StatusInstalled means the package is installed and up to date.
	StatusInstalled Status = "installed"
	// StatusUpgrade means a newer version is available.
	StatusUpgrade Status = "upgrade"
)

// queryTool is the package manager front-end that must exist on the host.
const queryTool = "dpkg-query"

// Kind registers the beacon with a registry.
//
//nolint:gochecknoglobals // Registration descriptor.
var Kind = beacon.Kind{
	Name:        Name,
	Description: "Emit package status changes between not-installed, installed and upgrade",
	Available: func(caps beacon.Capabilities) error {
		if _, err := caps.LookPath(queryTool); err != nil {
			return fmt.Errorf("package manager not found: %w", err)
		}

		return nil
	},
	Validate: Validate,
	New: func(deps beacon.Deps) beacon.Beacon {
		return New(deps.Capabilities, deps.Context, deps.Name)
	},
}

// Beacon compares package statuses with the cached ones.
type Beacon struct {
	// packages answers version queries.
	packages beacon.PackageQuerier
	// cache is the shared scratchpad holding the status cache.
	cache state.ContextStore
	// key is the context entry owned by this instance.
	key string
}

// New creates a beacon caching statuses in store under the instance's key.
func New(packages beacon.PackageQuerier, store state.ContextStore, instance string) *Beacon {
	if store == nil {
		store = state.NewMemoryContext()
	}

	if instance == "" {
		instance = Name
	}

	return &Beacon{
		packages: packages,
		cache:    store,
		key:      beacon.ContextKey(instance),
	}
}

// Validate checks the beacon configuration.
func (b *Beacon) Validate(cfg beacon.ConfigList) (bool, string) {
	return Validate(cfg)
}

// Beacon queries every package and reports status changes.
func (b *Beacon) Beacon(ctx context.Context, cfg beacon.ConfigList) []beacon.Event {
	settings, err := ParseSettings(cfg)
	if err != nil {
		logger.WarnKV(ctx, "Skipping pkg tick, configuration is invalid", "error", err)
		return nil
	}

	var (
		events   []beacon.Event
		statuses = b.statuses()
	)

	for _, name := range settings.Packages {
		current, version, err := b.query(ctx, name, settings.Refresh)
		if err != nil {
			// Leave the cached status alone, the package was not observed.
			logger.WarnKV(ctx, "Unable to query package", "pkg", name, "error", err)
			continue
		}

		previous, seen := statuses[name]
		statuses[name] = current

		if !seen || previous == current {
			continue
		}

		var reported any
		if version != "" {
			reported = version
		}

		events = append(events, beacon.Event{
			"pkg":     name,
			"version": reported,
			"status":  string(current),
		})
	}

	b.cache.Set(b.key, statuses)

	return events
}

// query returns the status of one package and the version to report with it.
func (b *Beacon) query(ctx context.Context, name string, refresh bool) (Status, string, error) {
	installed, err := b.packages.InstalledVersion(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("installed version: %w", err)
	}

	if installed == "" {
		return StatusNotInstalled, "", nil
	}

	latest, err := b.packages.LatestVersion(ctx, name, refresh)
	if err != nil {
		return "", "", fmt.Errorf("latest version: %w", err)
	}

	if latest != "" {
		return StatusUpgrade, latest, nil
	}

	return StatusInstalled, installed, nil
}

// statuses returns the status cache of this instance, creating it when absent.
func (b *Beacon) statuses() map[string]Status {
	if value, ok := b.cache.Get(b.key); ok {
		if cache, ok := value.(map[string]Status); ok {
			return cache
		}
	}

	return make(map[string]Status)
}
