// Package engine runs the configured beacons.
//
// Every enabled definition becomes an instance with its own goroutine and
// ticker; ticks of one instance never overlap. Records returned by a tick are
// wrapped into envelopes and handed to a publisher. The settings file is
// watched and instances are reconciled on change: unchanged ones keep their
// state, changed ones restart fresh and removed ones stop.
package engine
