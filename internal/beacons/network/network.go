package network

import (
	"context"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/logger"
)

// Kind registers the beacon with a registry.
//
//nolint:gochecknoglobals // Registration descriptor.
var Kind = beacon.Kind{
	Name:        Name,
	Description: "Emit network interface counters crossing configured thresholds",
	Validate:    Validate,
	New: func(deps beacon.Deps) beacon.Beacon {
		return New(deps.Capabilities)
	},
}

// Beacon evaluates interface counters. It keeps no state between ticks.
type Beacon struct {
	// source samples the per-interface counters.
	source beacon.CounterSource
}

// New creates a beacon reading from source.
func New(source beacon.CounterSource) *Beacon {
	return &Beacon{
		source: source,
	}
}

// Validate checks the beacon configuration.
func (b *Beacon) Validate(cfg beacon.ConfigList) (bool, string) {
	return Validate(cfg)
}

// Beacon samples the counters and reports every interface with a firing threshold.
func (b *Beacon) Beacon(ctx context.Context, cfg beacon.ConfigList) []beacon.Event {
	settings, err := ParseSettings(cfg)
	if err != nil {
		logger.WarnKV(ctx, "Skipping network_info tick, configuration is invalid", "error", err)
		return nil
	}

	stats, err := b.source.IOCounters(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Unable to read network counters", "error", err)
		return nil
	}

	var events []beacon.Event

	for _, iface := range settings.Interfaces {
		counters, ok := stats[iface.Name]
		if !ok {
			continue
		}

		if !fires(iface, counters) {
			continue
		}

		events = append(events, beacon.Event{
			"interface":    iface.Name,
			"network_info": counters.Map(),
		})
	}

	return events
}

// fires reports whether any configured counter of iface triggers.
func fires(iface Interface, counters beacon.Counters) bool {
	for _, name := range beacon.CounterNames {
		threshold, ok := iface.Thresholds[name]
		if !ok {
			continue
		}

		sampled, _ := counters.Get(name)
		if iface.Type.Fires(sampled, threshold) {
			return true
		}
	}

	return false
}
