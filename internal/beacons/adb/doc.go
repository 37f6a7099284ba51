// Package adb implements the beacon that reports Android device state changes.
//
// Devices are listed with `adb devices` on every tick. A transition into one of
// the configured states, a device disappearing, the battery dropping to the
// configured threshold and the device list becoming empty each produce one
// event; repeated observations of the same condition produce none.
package adb
