package ps

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// Name is the kind identifier of this beacon.
const Name = "ps"

// Expectation is the configured liveness of a process.
type Expectation string

const (
	// ExpectRunning fires while the process is running.
	ExpectRunning Expectation = "running"
	// ExpectStopped fires while the process is not running.
	ExpectStopped Expectation = "stopped"
)

// Process is the typed configuration of one watched process.
type Process struct {
	// Name is the process executable name.
	Name string
	// Expect is "running", "stopped" or any other value meaning the
	// process must exist.
	Expect Expectation
}

// Settings is the merged and typed configuration of the beacon.
type Settings struct {
	// Processes are sorted by name so events come out in a stable order.
	Processes []Process
}

// Diagnostics returned by Validate; they are shown to operators verbatim.
//
//nolint:staticcheck // Messages are user facing sentences.
var (
	errProcessesRequired = errors.New("Configuration for ps beacon requires processes.")
	errProcessesNotMap   = errors.New("Processes for ps beacon must be a dictionary.")
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
	raw, ok := cfg.Lookup("processes")
	if !ok {
		return nil, errProcessesRequired
	}

	processes, ok := beacon.ToMapping(raw)
	if !ok {
		return nil, errProcessesNotMap
	}

	settings := &Settings{
		Processes: make([]Process, 0, len(processes)),
	}

	for _, name := range slices.Sorted(maps.Keys(processes)) {
		var expect Expectation
		if value := processes[name]; value != nil {
			expect = Expectation(fmt.Sprint(value))
		}

		settings.Processes = append(settings.Processes, Process{Name: name, Expect: expect})
	}

	return settings, nil
}
