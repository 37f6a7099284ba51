// Package beacons assembles the registry of every beacon kind shipped with
// the engine.
package beacons

import (
	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/beacons/adb"
	"github.com/oshokin/beacon-engine/internal/beacons/network"
	"github.com/oshokin/beacon-engine/internal/beacons/pkg"
	"github.com/oshokin/beacon-engine/internal/beacons/ps"
)

// Default returns a registry with adb, network_info, pkg and ps registered.
func Default() *beacon.Registry {
	registry := beacon.NewRegistry()

	registry.Register(adb.Kind)
	registry.Register(network.Kind)
	registry.Register(pkg.Kind)
	registry.Register(ps.Kind)

	return registry
}
