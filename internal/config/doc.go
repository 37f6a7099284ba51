// Package config defines the settings of the beacon daemon and provides
// helpers to load, validate and save them in YAML format.
//
// Besides the daemon options, the file holds the beacon definitions in their
// wire shape: a list of single-key mappings per beacon name. Definitions
// splits the engine-level items (interval, disabled, beacon_module) from the
// configuration handed to each beacon.
package config
