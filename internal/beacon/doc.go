// Package beacon defines the contract every beacon satisfies.
//
// A beacon is validated once against its configuration and then invoked on
// every tick; it samples a host condition, diffs it against the state it owns
// and returns the events for the transitions it observed. The package holds
// the configuration wire shape (an ordered list of single-key mappings merged
// left-to-right), the event record, the host capabilities beacons consume and
// the registry the host runtime loads beacon kinds from.
package beacon
