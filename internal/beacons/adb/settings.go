package adb

import (
	"errors"
	"slices"
	"strings"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// Name is the kind identifier of this beacon.
const Name = "adb"

// StateMissing is the pseudo state reported for devices that disappeared.
const StateMissing = "missing"

// maxBatteryLevel is the upper bound of a battery percentage.
const maxBatteryLevel = 100

// ValidStates lists every state a device can be reported in.
//
//nolint:gochecknoglobals // Fixed enumeration used by validation and tests.
var ValidStates = []string{
	"offline",
	"bootloader",
	"device",
	"host",
	"recovery",
	"no permissions",
	"sideload",
	"unauthorized",
	"unknown",
	StateMissing,
}

// Settings is the merged and typed configuration of the beacon.
type Settings struct {
	// States are the device states that produce events.
	States []string
	// NoDevicesEvent enables the event fired when the device list becomes empty.
	NoDevicesEvent bool
	// BatteryLow is the battery percentage at or below which an event fires, nil when disabled.
	BatteryLow *int
	// User runs adb as another system user when set.
	User string
}

// Diagnostics returned by Validate; they are shown to operators verbatim.
//
//nolint:staticcheck // Messages are user facing sentences.
var (
	errStatesRequired = errors.New("Configuration for adb beacon must include a states array.")
	errInvalidState   = errors.New("Need a one of the following adb states: " + strings.Join(ValidStates, ", "))
	errBatteryLow     = errors.New("Configuration for adb beacon battery_low must be an integer between 0 and 100.")
	errNoDevicesEvent = errors.New("Configuration for adb beacon no_devices_event must be a boolean.")
	errUserNotAString = errors.New("Configuration for adb beacon user must be a string.")
)

// Validate checks the beacon configuration.
func Validate(cfg beacon.ConfigList) (bool, string) {
	if _, err := ParseSettings(cfg); err != nil {
		return false, err.Error()
	}

	return true, beacon.ValidMessage
}

// ParseSettings merges the configuration list and converts it into Settings.
//
//nolint:cyclop // Each optional key is checked in turn.
func ParseSettings(cfg beacon.ConfigList) (*Settings, error) {
	merged := cfg.Merge()

	rawStates, ok := merged["states"]
	if !ok {
		return nil, errStatesRequired
	}

	states, ok := beacon.ToStringList(rawStates)
	if !ok {
		return nil, errStatesRequired
	}

	for _, state := range states {
		if !slices.Contains(ValidStates, state) {
			return nil, errInvalidState
		}
	}

	settings := &Settings{
		States: states,
	}

	if raw, ok := merged["no_devices_event"]; ok {
		settings.NoDevicesEvent, ok = beacon.ToBool(raw)
		if !ok {
			return nil, errNoDevicesEvent
		}
	}

	if raw, ok := merged["battery_low"]; ok {
		level, ok := beacon.ToInt(raw)
		if !ok || level < 0 || level > maxBatteryLevel {
			return nil, errBatteryLow
		}

		threshold := int(level)
		settings.BatteryLow = &threshold
	}

	if raw, ok := merged["user"]; ok && raw != nil {
		settings.User, ok = raw.(string)
		if !ok {
			return nil, errUserNotAString
		}
	}

	return settings, nil
}

// Allows reports whether state produces events.
func (s *Settings) Allows(state string) bool {
	return slices.Contains(s.States, state)
}
