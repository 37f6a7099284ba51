// Package network implements the beacon that compares network interface
// counters against static thresholds.
//
// Every tick is evaluated on its own: an interface fires when any configured
// counter equals (or, in "greater" mode, strictly exceeds) its threshold and
// the event carries the interface's full counter snapshot.
package network
