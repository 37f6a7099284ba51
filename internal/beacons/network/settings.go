package network

import (
	"errors"
	"maps"
	"slices"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// Name is the kind identifier of this beacon.
const Name = "network_info"

// Comparison selects how sampled counters are compared with thresholds.
type Comparison string

const (
	// CompareEqual fires when a counter equals its threshold.
	CompareEqual Comparison = "equal"
	// CompareGreater fires when a counter is strictly greater than its threshold.
	CompareGreater Comparison = "greater"
)

// typeKey is the interface option selecting the comparison.
const typeKey = "type"

// Interface is the typed configuration of one watched interface.
type Interface struct {
	// Name is the interface name, e.g. eth0.
	Name string
	// Type is the configured comparison; any value other than "greater"
	// compares for equality.
	Type Comparison
	// Thresholds maps counter names to their thresholds.
	Thresholds map[string]int64
}

// Settings is the merged and typed configuration of the beacon.
type Settings struct {
	// Interfaces are sorted by name so events come out in a stable order.
	Interfaces []Interface
}

// Diagnostics returned by Validate; they are shown to operators verbatim.
//
//nolint:staticcheck // Messages are user facing sentences.
var (
	errInterfacesRequired = errors.New("Configuration for network_info beacon requires interfaces.")
	errInterfacesNotMap   = errors.New("Interfaces for network_info beacon must be a dictionary.")
	errInterfaceNotMap    = errors.New("Configuration for network_info beacon must be a list of dictionaries.")
	errNoValidItem        = errors.New("Invalid configuration item in Beacon configuration.")
)

// Validate checks the beacon configuration.
func Validate(cfg beacon.ConfigList) (bool, string) {
	if _, err := ParseSettings(cfg); err != nil {
		return false, err.Error()
	}

	return true, beacon.ValidMessage
}

// ParseSettings merges the configuration list and converts it into Settings.
// Thresholds that are not integers are ignored, like counters the host does
// not report.
func ParseSettings(cfg beacon.ConfigList) (*Settings, error) {
	raw, ok := cfg.Lookup("interfaces")
	if !ok {
		return nil, errInterfacesRequired
	}

	interfaces, ok := beacon.ToMapping(raw)
	if !ok {
		return nil, errInterfacesNotMap
	}

	settings := &Settings{
		Interfaces: make([]Interface, 0, len(interfaces)),
	}

	for _, name := range slices.Sorted(maps.Keys(interfaces)) {
		options, ok := beacon.ToMapping(interfaces[name])
		if !ok {
			return nil, errInterfaceNotMap
		}

		if !hasValidItem(options) {
			return nil, errNoValidItem
		}

		iface := Interface{
			Name:       name,
			Thresholds: make(map[string]int64, len(beacon.CounterNames)),
		}

		if comparison, ok := options[typeKey].(string); ok {
			iface.Type = Comparison(comparison)
		}

		for _, counter := range beacon.CounterNames {
			rawThreshold, ok := options[counter]
			if !ok {
				continue
			}

			if threshold, ok := beacon.ToInt(rawThreshold); ok {
				iface.Thresholds[counter] = threshold
			}
		}

		settings.Interfaces = append(settings.Interfaces, iface)
	}

	return settings, nil
}

// hasValidItem reports whether options names the comparison or a known counter.
func hasValidItem(options map[string]any) bool {
	for key := range options {
		if key == typeKey || slices.Contains(beacon.CounterNames, key) {
			return true
		}
	}

	return false
}

// Fires reports whether the sampled value triggers the threshold.
// Unknown and empty comparison types fall back to equality.
func (c Comparison) Fires(sampled uint64, threshold int64) bool {
	switch c {
	case CompareGreater:
		return threshold < 0 || sampled > uint64(threshold)
	case CompareEqual:
		return threshold >= 0 && sampled == uint64(threshold)
	default:
		// TODO: decide whether unknown types should be rejected by Validate instead of comparing for equality.
		return threshold >= 0 && sampled == uint64(threshold)
	}
}
