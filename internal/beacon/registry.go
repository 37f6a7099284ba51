package beacon

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/oshokin/beacon-engine/internal/repository/state"
)

// ValidMessage is returned by validators that accept a configuration.
const ValidMessage = "Valid beacon configuration"

// Beacon is the contract between a beacon instance and the host runtime.
// Ticks of one instance must not overlap; the host runtime serializes them.
type Beacon interface {
	// Validate checks the configuration shape. It has no side effects.
	Validate(cfg ConfigList) (bool, string)
	// Beacon samples the host, diffs against the instance state and returns
	// the events in emission order.
	Beacon(ctx context.Context, cfg ConfigList) []Event
}

// Deps are the explicit dependencies injected into a beacon instance.
type Deps struct {
	// Capabilities is the host adapter the beacon samples through.
	Capabilities Capabilities
	// Context is the process-wide scratchpad shared by all instances.
	Context state.ContextStore
	// Name identifies the instance; it namespaces the instance's context keys.
	Name string
}

// Kind describes one beacon implementation.
type Kind struct {
	// Name is the kind identifier used in configuration.
	Name string
	// Description is a short human readable summary.
	Description string
	// Available reports why the kind cannot run on this host, nil when it can.
	Available func(caps Capabilities) error
	// Validate checks a configuration for this kind.
	Validate func(cfg ConfigList) (bool, string)
	// New creates an instance with its own private state.
	New func(deps Deps) Beacon
}

var (
	// ErrUnknownKind is returned when a kind is not registered.
	ErrUnknownKind = errors.New("unknown beacon kind")
	// ErrUnavailable is returned when a kind cannot run on this host.
	ErrUnavailable = errors.New("beacon unavailable")
	// ErrCapabilitiesRequired is returned when a kind is loaded without capabilities.
	ErrCapabilitiesRequired = errors.New("capabilities must be provided")
)

// Registry holds the beacon kinds known to the host runtime.
type Registry struct {
	// kinds maps kind names to their descriptions.
	kinds map[string]Kind
	// mu protects kinds.
	mu sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Kind),
	}
}

// Register adds a kind. Registering a name twice is a programming error and panics.
func (r *Registry) Register(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind.Name == "" || kind.Validate == nil || kind.New == nil {
		panic(fmt.Sprintf("beacon kind %q is incomplete", kind.Name))
	}

	if _, exists := r.kinds[kind.Name]; exists {
		panic(fmt.Sprintf("beacon kind %q registered twice", kind.Name))
	}

	r.kinds[kind.Name] = kind
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, ok := r.kinds[name]

	return kind, ok
}

// Kinds returns the registered kind names in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Validate checks a raw decoded configuration against the named kind.
// Shape errors are reported the same way as the kind's own rejections.
func (r *Registry) Validate(name string, raw any) (bool, string) {
	kind, ok := r.Lookup(name)
	if !ok {
		return false, fmt.Sprintf("Unknown beacon kind %q.", name)
	}

	cfg, err := ParseConfigList(raw)
	if err != nil {
		return false, ShapeMessage(name)
	}

	return kind.Validate(cfg)
}

// Load checks that the kind can run on this host and creates an instance.
func (r *Registry) Load(name string, deps Deps) (Beacon, error) {
	kind, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownKind)
	}

	if deps.Capabilities == nil {
		return nil, ErrCapabilitiesRequired
	}

	if kind.Available != nil {
		if err := kind.Available(deps.Capabilities); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrUnavailable, err)
		}
	}

	if deps.Context == nil {
		deps.Context = state.NewMemoryContext()
	}

	if deps.Name == "" {
		deps.Name = name
	}

	return kind.New(deps), nil
}

// ShapeMessage is the diagnostic for a configuration that is not a list of single-key mappings.
func ShapeMessage(kind string) string {
	return fmt.Sprintf("Configuration for %s beacon must be a list.", kind)
}

// ContextKey namespaces an instance's entries in the shared context store.
func ContextKey(instance string) string {
	return "beacon." + instance
}
