package ps

import (
	"context"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/logger"
)

const (
	// ReportRunning and ReportStopped are the values of the emitted records.
	ReportRunning = "Running"
	ReportStopped = "Stopped"
)

// Kind registers the beacon with a registry.
//
//nolint:gochecknoglobals // Registration descriptor.
var Kind = beacon.Kind{
	Name:        Name,
	Description: "Emit process liveness matching the configured expectation",
	Validate:    Validate,
	New: func(deps beacon.Deps) beacon.Beacon {
		return New(deps.Capabilities)
	},
}

// Beacon checks process liveness. It keeps no state between ticks.
type Beacon struct {
	// lister returns the running process names.
	lister beacon.ProcessLister
}

// New creates a beacon reading from lister.
func New(lister beacon.ProcessLister) *Beacon {
	return &Beacon{
		lister: lister,
	}
}

// Validate checks the beacon configuration.
func (b *Beacon) Validate(cfg beacon.ConfigList) (bool, string) {
	return Validate(cfg)
}

// Beacon lists the processes once and reports every configured process
// whose liveness matches its expectation.
func (b *Beacon) Beacon(ctx context.Context, cfg beacon.ConfigList) []beacon.Event {
	settings, err := ParseSettings(cfg)
	if err != nil {
		logger.WarnKV(ctx, "Skipping ps tick, configuration is invalid", "error", err)
		return nil
	}

	names, err := b.lister.ProcessNames(ctx)
	if err != nil {
		// An empty list would report every process as stopped.
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return nil
	}

	running := make(map[string]struct{}, len(names))
	for _, name := range names {
		running[name] = struct{}{}
	}

	var events []beacon.Event

	for _, process := range settings.Processes {
		_, found := running[process.Name]

		switch process.Expect {
		case ExpectRunning:
			if found {
				events = append(events, beacon.Event{process.Name: ReportRunning})
			}
		case ExpectStopped:
			if !found {
				events = append(events, beacon.Event{process.Name: ReportStopped})
			}
		default:
			if !found {
				events = append(events, beacon.Event{process.Name: false})
			}
		}
	}

	return events
}
