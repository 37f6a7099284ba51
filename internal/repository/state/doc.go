// Package state implements the in-memory state beacons keep between ticks.
//
// Store maps an entity key to the attributes last observed for it and Flags
// holds singleton markers such as "no devices were present". Both are owned by
// exactly one beacon instance and live as long as the process. ContextStore is
// the process-wide scratchpad the host runtime shares with every beacon.
package state
