package beacon

import "context"

// CounterNames lists the network interface counters in reporting order.
//
//nolint:gochecknoglobals // Fixed set shared by the network beacon and its host adapter.
var CounterNames = []string{
	"bytes_sent",
	"bytes_recv",
	"packets_sent",
	"packets_recv",
	"errin",
	"errout",
	"dropin",
	"dropout",
}

// Counters is one interface's I/O counter snapshot.
type Counters struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	Errin       uint64
	Errout      uint64
	Dropin      uint64
	Dropout     uint64
}

// Get returns the counter by its configuration name.
func (c Counters) Get(name string) (uint64, bool) {
	switch name {
	case "bytes_sent":
		return c.BytesSent, true
	case "bytes_recv":
		return c.BytesRecv, true
	case "packets_sent":
		return c.PacketsSent, true
	case "packets_recv":
		return c.PacketsRecv, true
	case "errin":
		return c.Errin, true
	case "errout":
		return c.Errout, true
	case "dropin":
		return c.Dropin, true
	case "dropout":
		return c.Dropout, true
	default:
		return 0, false
	}
}

// Map returns the snapshot keyed by counter name.
func (c Counters) Map() map[string]any {
	result := make(map[string]any, len(CounterNames))

	for _, name := range CounterNames {
		value, _ := c.Get(name)
		result[name] = value
	}

	return result
}

// CommandRunner runs external commands on the host.
type CommandRunner interface {
	// RunCommand runs name with args, optionally as another user, and returns its stdout.
	RunCommand(ctx context.Context, runAs string, name string, args ...string) (string, error)
}

// PackageQuerier answers package manager questions.
type PackageQuerier interface {
	// InstalledVersion returns the installed version or an empty string when the package is absent.
	InstalledVersion(ctx context.Context, pkg string) (string, error)
	// LatestVersion returns a newer available version or an empty string when none exists.
	LatestVersion(ctx context.Context, pkg string, refresh bool) (string, error)
}

// CounterSource samples per-interface network counters.
type CounterSource interface {
	IOCounters(ctx context.Context) (map[string]Counters, error)
}

// ProcessLister lists the names of the running processes.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

// ToolFinder locates external tools at load time.
type ToolFinder interface {
	LookPath(name string) (string, error)
}

// Capabilities bundles everything the host runtime lends to beacons.
type Capabilities interface {
	CommandRunner
	PackageQuerier
	CounterSource
	ProcessLister
	ToolFinder
}
