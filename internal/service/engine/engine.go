package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/config"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/repository/state"
)

// Publisher receives the envelopes produced by beacon ticks.
type Publisher interface {
	Publish(ctx context.Context, envelope *event.Envelope)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, envelope *event.Envelope)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, envelope *event.Envelope) {
	f(ctx, envelope)
}

// ErrInvalidConfig wraps the diagnostic of a rejected beacon configuration.
var ErrInvalidConfig = errors.New("invalid beacon configuration")

// Engine owns the running beacon instances.
type Engine struct {
	// registry resolves beacon kinds.
	registry *beacon.Registry
	// caps is the host adapter lent to every instance.
	caps beacon.Capabilities
	// scratch is the shared context store lent to every instance.
	scratch state.ContextStore
	// source identifies this host in event tags.
	source *event.Source
	// publisher receives the envelopes.
	publisher Publisher
	// now stamps envelopes.
	now func() time.Time

	// instances maps instance names to running instances.
	instances map[string]*instance
	// stopped is set by Stop; later Apply calls start nothing.
	stopped bool
	// wg tracks instance goroutines.
	wg sync.WaitGroup
	// mu protects instances and stopped.
	mu sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithClock replaces the clock used to stamp envelopes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithContextStore replaces the shared context store.
func WithContextStore(store state.ContextStore) Option {
	return func(e *Engine) {
		if store != nil {
			e.scratch = store
		}
	}
}

// New creates an engine with no running instances.
func New(
	registry *beacon.Registry,
	caps beacon.Capabilities,
	source *event.Source,
	publisher Publisher,
	opts ...Option,
) *Engine {
	e := &Engine{
		registry:  registry,
		caps:      caps,
		scratch:   state.NewMemoryContext(),
		source:    source,
		publisher: publisher,
		now:       time.Now,
		instances: make(map[string]*instance),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply reconciles the running instances with definitions.
// Instances whose definition did not change keep running with their state.
// It returns the number of instances started.
func (e *Engine) Apply(ctx context.Context, definitions []config.Definition) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return 0
	}

	wanted := make(map[string]*config.Definition, len(definitions))
	for i := range definitions {
		wanted[definitions[i].Name] = &definitions[i]
	}

	for _, name := range slices.Sorted(maps.Keys(e.instances)) {
		running := e.instances[name]

		definition, ok := wanted[name]
		if ok && running.definition.Same(definition) {
			continue
		}

		logger.InfoKV(ctx, "Stopping beacon", "beacon", name)
		running.stop()
		delete(e.instances, name)
		e.scratch.Delete(beacon.ContextKey(name))
	}

	started := 0

	for _, definition := range definitions {
		if _, running := e.instances[definition.Name]; running {
			continue
		}

		if definition.Disabled {
			logger.InfoKV(ctx, "Beacon is disabled", "beacon", definition.Name)
			continue
		}

		created, err := e.prepare(definition)
		if err != nil {
			logger.ErrorKV(ctx, "Beacon not started", "beacon", definition.Name, "kind", definition.Kind, "error", err)
			continue
		}

		e.instances[definition.Name] = created
		created.start(ctx, e)

		started++
	}

	return started
}

// Running returns the names of the running instances in sorted order.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Sorted(maps.Keys(e.instances))
}

// Once runs every enabled definition a single time, sequentially in the given order,
// and returns the envelopes that were published.
func (e *Engine) Once(ctx context.Context, definitions []config.Definition) ([]*event.Envelope, error) {
	var (
		envelopes []*event.Envelope
		errs      []error
	)

	for _, definition := range definitions {
		if definition.Disabled {
			continue
		}

		created, err := e.prepare(definition)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", definition.Name, err))
			continue
		}

		envelopes = append(envelopes, e.tick(created.context(ctx), created)...)
	}

	return envelopes, errors.Join(errs...)
}

// Stop stops every instance and waits for their goroutines.
// The engine cannot be restarted.
func (e *Engine) Stop() {
	e.mu.Lock()

	e.stopped = true

	for name, running := range e.instances {
		running.cancel()
		delete(e.instances, name)
	}

	e.mu.Unlock()

	e.wg.Wait()
}

// prepare loads the kind of definition and validates its configuration.
func (e *Engine) prepare(definition config.Definition) (*instance, error) {
	if definition.Err != nil {
		if errors.Is(definition.Err, beacon.ErrNotList) || errors.Is(definition.Err, beacon.ErrNotSingleKeyMapping) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, beacon.ShapeMessage(definition.Kind))
		}

		return nil, definition.Err
	}

	loaded, err := e.registry.Load(definition.Kind, beacon.Deps{
		Capabilities: e.caps,
		Context:      e.scratch,
		Name:         definition.Name,
	})
	if err != nil {
		return nil, err
	}

	if valid, message := loaded.Validate(definition.Config); !valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, message)
	}

	return newInstance(definition, loaded), nil
}

// tick runs one beacon invocation and publishes its records.
// A panicking beacon is logged and yields no envelopes.
func (e *Engine) tick(ctx context.Context, running *instance) (envelopes []*event.Envelope) {
	name := running.definition.Name

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorKV(ctx, "Beacon tick panicked", "beacon", name, "panic", recovered)

			envelopes = nil
		}
	}()

	records := running.beacon.Beacon(ctx, running.definition.Config)
	if len(records) == 0 {
		return nil
	}

	timestamp := e.now()
	envelopes = make([]*event.Envelope, 0, len(records))

	for _, record := range records {
		envelope := event.New(e.source, name, record, timestamp)
		envelopes = append(envelopes, envelope)

		if e.publisher != nil {
			e.publisher.Publish(ctx, envelope)
		}
	}

	logger.DebugKV(ctx, "Beacon fired", "beacon", name, "events", len(envelopes))

	return envelopes
}
