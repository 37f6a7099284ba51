package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/repository/state"
)

const (
	// tool is the executable the beacon drives.
	tool = "adb"
	// batteryCommand prints the capacity of every power supply on the device.
	batteryCommand = "cat /sys/class/power_supply/*/capacity"

	// attrState and attrBattery are the attributes tracked per device.
	attrState   = "state"
	attrBattery = "battery"

	// flagNoDevices is set while the last listing was empty.
	flagNoDevices = "no_devices"

	// TagBatteryLow and TagNoDevices are the tags of the non-state events.
	TagBatteryLow = "battery_low"
	TagNoDevices  = "no_devices"
)

// Kind registers the beacon with a registry.
//
//nolint:gochecknoglobals // Registration descriptor.
var Kind = beacon.Kind{
	Name:        Name,
	Description: "Emit Android device state changes reported by adb",
	Available: func(caps beacon.Capabilities) error {
		if _, err := caps.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found: %w", tool, err)
		}

		return nil
	},
	Validate: Validate,
	New: func(deps beacon.Deps) beacon.Beacon {
		return New(deps.Capabilities)
	},
}

// Beacon tracks devices between ticks.
type Beacon struct {
	// runner executes adb on the host.
	runner beacon.CommandRunner
	// devices holds the last observed attributes per serial.
	devices *state.Store
	// flags holds the watcher-wide markers.
	flags *state.Flags
}

// device is one parsed line of `adb devices`.
type device struct {
	serial string
	state  string
}

// New creates a beacon with empty state.
func New(runner beacon.CommandRunner) *Beacon {
	return &Beacon{
		runner:  runner,
		devices: state.NewStore(),
		flags:   state.NewFlags(),
	}
}

// Validate checks the beacon configuration.
func (b *Beacon) Validate(cfg beacon.ConfigList) (bool, string) {
	return Validate(cfg)
}

// Beacon lists the devices and reports the transitions since the previous tick.
func (b *Beacon) Beacon(ctx context.Context, cfg beacon.ConfigList) []beacon.Event {
	settings, err := ParseSettings(cfg)
	if err != nil {
		logger.WarnKV(ctx, "Skipping adb tick, configuration is invalid", "error", err)
		return nil
	}

	return b.poll(ctx, settings)
}

// poll runs one tick against typed settings.
func (b *Beacon) poll(ctx context.Context, settings *Settings) []beacon.Event {
	output, err := b.runner.RunCommand(ctx, settings.User, tool, "devices")
	if err != nil {
		// Absence is not confirmed, keep the state untouched.
		logger.WarnKV(ctx, "Unable to list adb devices", "error", err)
		return nil
	}

	var (
		events  []beacon.Event
		tracked = b.devices.Keys()
		found   = make(map[string]struct{})
	)

	for _, d := range parseDevices(output) {
		found[d.serial] = struct{}{}

		if b.stateChanged(d) && settings.Allows(d.state) {
			events = append(events, beacon.Event{
				"device":      d.serial,
				"state":       d.state,
				beacon.TagKey: d.state,
			})

			b.devices.Update(d.serial, state.Attributes{attrState: d.state})
		}

		if settings.BatteryLow != nil {
			events = append(events, b.checkBattery(ctx, settings, d.serial)...)
		}
	}

	for _, serial := range tracked {
		if _, ok := found[serial]; ok {
			continue
		}

		if settings.Allows(StateMissing) {
			events = append(events, beacon.Event{
				"device":      serial,
				"state":       StateMissing,
				beacon.TagKey: StateMissing,
			})
		}

		b.devices.Delete(serial)
	}

	if settings.NoDevicesEvent && len(found) == 0 && !b.flags.Get(flagNoDevices) {
		events = append(events, beacon.Event{beacon.TagKey: TagNoDevices})
	}

	b.flags.Set(flagNoDevices, len(found) == 0)

	logger.DebugKV(ctx, "adb tick finished", "devices", len(found), "events", len(events))

	return events
}

// stateChanged reports whether d is new or its recorded state differs.
func (b *Beacon) stateChanged(d device) bool {
	recorded, ok := b.devices.Value(d.serial, attrState)
	if !ok {
		return true
	}

	return recorded != d.state
}

// checkBattery reads the battery levels of one device and reports a drop
// to or below the threshold.
func (b *Beacon) checkBattery(ctx context.Context, settings *Settings, serial string) []beacon.Event {
	output, err := b.runner.RunCommand(ctx, settings.User, tool, "-s", serial, "shell", batteryCommand)
	if err != nil {
		logger.DebugKV(ctx, "Unable to read battery level", "device", serial, "error", err)
		return nil
	}

	var (
		events    []beacon.Event
		threshold = *settings.BatteryLow
	)

	for _, level := range parseBatteryLevels(output) {
		previous, known := b.batteryLevel(serial)

		if (!known || level != previous) && (!known || previous > threshold) && level <= threshold {
			events = append(events, beacon.Event{
				"device":        serial,
				"battery_level": level,
				beacon.TagKey:   TagBatteryLow,
			})
		}

		b.devices.Update(serial, state.Attributes{attrBattery: level})
	}

	return events
}

// batteryLevel returns the last recorded battery level of serial.
func (b *Beacon) batteryLevel(serial string) (int, bool) {
	value, ok := b.devices.Value(serial, attrBattery)
	if !ok {
		return 0, false
	}

	level, ok := value.(int)

	return level, ok
}

// parseDevices extracts serial/state pairs from `adb devices` output.
// The header line is dropped and lines without exactly two tab-separated
// fields are skipped.
func parseDevices(output string) []device {
	lines := strings.Split(output, "\n")
	if len(lines) <= 1 {
		return nil
	}

	devices := make([]device, 0, len(lines)-1)

	for _, line := range lines[1:] {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) != 2 { //nolint:mnd // serial and state.
			continue
		}

		devices = append(devices, device{serial: fields[0], state: fields[1]})
	}

	return devices
}

// parseBatteryLevels returns the readings strictly between 0 and 100.
func parseBatteryLevels(output string) []int {
	var levels []int

	for _, line := range strings.Split(output, "\n") {
		level, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}

		if level > 0 && level < maxBatteryLevel {
			levels = append(levels, level)
		}
	}

	return levels
}
