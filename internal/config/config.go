package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/logger"
)

// Config holds the daemon settings and the beacon definitions.
type Config struct {
	// LogLevel is the minimum level of the daemon logs.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is either "console" or "json".
	LogFormat string `yaml:"log_format,omitempty"`
	// ListenAddress is the gRPC event stream address; empty disables the stream.
	ListenAddress string `yaml:"listen_address,omitempty"`
	// MinionID identifies this host in event tags; the hostname when empty.
	MinionID string `yaml:"minion_id,omitempty"`
	// DefaultInterval is the tick period of beacons without an interval item.
	DefaultInterval time.Duration `yaml:"default_interval,omitempty"`
	// CommandTimeout bounds every external command run by a beacon.
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
	// Beacons maps beacon names to their configuration lists.
	Beacons map[string]any `yaml:"beacons"`
}

// Definition is one beacon instance as declared in the settings file.
type Definition struct {
	// Name is the instance name, the key under beacons.
	Name string
	// Kind is the beacon kind, beacon_module when set, otherwise Name.
	Kind string
	// Interval is the tick period of the instance.
	Interval time.Duration
	// Disabled keeps the instance declared but stopped.
	Disabled bool
	// LogLevel overrides the daemon log level for this instance when set.
	LogLevel string
	// Raw is the configuration as decoded, used to report shape errors.
	Raw any
	// Config is the configuration list without the engine-level items.
	Config beacon.ConfigList
	// Err reports a configuration that is not a list of single-key mappings.
	Err error
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "beacond.yaml"

	// DefaultInterval is the tick period of beacons without an interval item.
	DefaultInterval = 10 * time.Second

	// DefaultCommandTimeout bounds external commands when not configured.
	DefaultCommandTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// Engine-level items stripped from beacon configuration lists.
	itemInterval     = "interval"
	itemDisabled     = "disabled"
	itemBeaconModule = "beacon_module"
	itemLogLevel     = "log_level"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("invalid log level")
	// errInvalidLogFormat is returned for unknown log formats.
	errInvalidLogFormat = errors.New("invalid log format")
	// errInvalidInterval is returned for interval items that are not positive durations.
	errInvalidInterval = errors.New("interval must be a positive number of seconds or a duration")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the daemon settings and fills in defaults.
// Beacon definitions are validated by their kinds, not here.
func Validate(settings *Config) error {
	if settings.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
			return fmt.Errorf("%w: %q", errInvalidLogLevel, settings.LogLevel)
		}
	}

	if _, ok := logger.ParseFormat(settings.LogFormat); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogFormat, settings.LogFormat)
	}

	if settings.ListenAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}
	}

	// Set default interval if not specified
	if settings.DefaultInterval <= 0 {
		settings.DefaultInterval = DefaultInterval
	}

	// Set default command timeout if not specified
	if settings.CommandTimeout <= 0 {
		settings.CommandTimeout = DefaultCommandTimeout
	}

	if settings.Beacons == nil {
		settings.Beacons = make(map[string]any)
	}

	return nil
}

// Definitions returns the declared beacons sorted by name.
func (c *Config) Definitions() []Definition {
	definitions := make([]Definition, 0, len(c.Beacons))

	for _, name := range slices.Sorted(maps.Keys(c.Beacons)) {
		definitions = append(definitions, c.definition(name))
	}

	return definitions
}

// definition splits the engine-level items from the beacon configuration.
func (c *Config) definition(name string) Definition {
	raw := c.Beacons[name]
	result := Definition{
		Name:     name,
		Kind:     name,
		Interval: c.DefaultInterval,
		Raw:      raw,
	}

	list, err := beacon.ParseConfigList(raw)
	if err != nil {
		result.Err = err
		return result
	}

	if value, ok := list.Lookup(itemBeaconModule); ok {
		if kind, ok := value.(string); ok && strings.TrimSpace(kind) != "" {
			result.Kind = strings.TrimSpace(kind)
		}
	}

	if value, ok := list.Lookup(itemDisabled); ok {
		result.Disabled, _ = beacon.ToBool(value)
	}

	if value, ok := list.Lookup(itemInterval); ok {
		interval, err := parseInterval(value)
		if err != nil {
			result.Err = fmt.Errorf("%s: %w", name, err)
			return result
		}

		result.Interval = interval
	}

	if value, ok := list.Lookup(itemLogLevel); ok {
		text, _ := value.(string)
		if _, valid := logger.ParseLogLevel(text); !valid {
			result.Err = fmt.Errorf("%s: %w: %v", name, errInvalidLogLevel, value)
			return result
		}

		result.LogLevel = text
	}

	result.Config = list.Without(itemInterval, itemDisabled, itemBeaconModule, itemLogLevel)

	return result
}

// Same reports whether both definitions would run the same instance.
func (d *Definition) Same(other *Definition) bool {
	return d.Name == other.Name &&
		d.Kind == other.Kind &&
		d.Interval == other.Interval &&
		d.Disabled == other.Disabled &&
		d.LogLevel == other.LogLevel &&
		d.Err == nil && other.Err == nil &&
		d.Config.Equal(other.Config)
}

// parseInterval accepts seconds as a number or a Go duration string.
func parseInterval(value any) (time.Duration, error) {
	if seconds, ok := beacon.ToInt(value); ok {
		if seconds <= 0 {
			return 0, errInvalidInterval
		}

		return time.Duration(seconds) * time.Second, nil
	}

	text, ok := value.(string)
	if !ok {
		return 0, errInvalidInterval
	}

	interval, err := time.ParseDuration(text)
	if err != nil || interval <= 0 {
		return 0, errInvalidInterval
	}

	return interval, nil
}
