// Package host adapts the machine the engine runs on to the capabilities
// beacons consume: running commands, querying the package manager, sampling
// network counters and listing processes.
package host
