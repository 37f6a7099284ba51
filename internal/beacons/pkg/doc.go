// Package pkg implements the beacon that watches packages for upgrades.
//
// Each tracked package is in one of three statuses: not-installed, installed
// or upgrade. The status of every package is cached in the host runtime's
// context store and an event fires when it changes; the first observation of
// a package only seeds the cache.
package pkg
