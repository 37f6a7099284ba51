package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/beacons"
	"github.com/oshokin/beacon-engine/internal/config"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/repository/state"
)

// fakeCapabilities lends canned host answers to beacons.
type fakeCapabilities struct {
	// processes is returned by ProcessNames.
	processes []string
	// missing lists the tools LookPath does not find.
	missing map[string]bool
}

func (f *fakeCapabilities) RunCommand(context.Context, string, string, ...string) (string, error) {
	return "", nil
}

func (f *fakeCapabilities) InstalledVersion(context.Context, string) (string, error) { return "", nil }

func (f *fakeCapabilities) LatestVersion(context.Context, string, bool) (string, error) {
	return "", nil
}

func (f *fakeCapabilities) IOCounters(context.Context) (map[string]beacon.Counters, error) {
	return nil, nil //nolint:nilnil // No interfaces on the fake host.
}

func (f *fakeCapabilities) ProcessNames(context.Context) ([]string, error) { return f.processes, nil }

func (f *fakeCapabilities) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", errors.New(name + " not found")
	}

	return "/usr/bin/" + name, nil
}

// counterBeacon emits one record per tick carrying its private tick count.
type counterBeacon struct {
	// deps are the injected dependencies.
	deps beacon.Deps
	// seen counts the ticks of this instance.
	seen int
	// panics makes every tick panic.
	panics bool
}

func (b *counterBeacon) Validate(cfg beacon.ConfigList) (bool, string) {
	if _, reject := cfg.Lookup("reject"); reject {
		return false, "Configuration for counter beacon was rejected."
	}

	return true, beacon.ValidMessage
}

func (b *counterBeacon) Beacon(context.Context, beacon.ConfigList) []beacon.Event {
	if b.panics {
		panic("boom")
	}

	b.seen++
	b.deps.Context.Set(beacon.ContextKey(b.deps.Name), b.seen)

	return []beacon.Event{{"seen": b.seen, beacon.TagKey: "tick"}}
}

// collector records published envelopes.
type collector struct {
	// envelopes are the published envelopes in order.
	envelopes []*event.Envelope
	// mu protects envelopes.
	mu sync.Mutex
}

func (c *collector) Publish(_ context.Context, envelope *event.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.envelopes = append(c.envelopes, envelope)
}

// seen returns the tick counts published by the named beacon.
func (c *collector) seen(name string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []int

	for _, envelope := range c.envelopes {
		if envelope.Beacon == name {
			value, _ := envelope.Data["seen"].(int)
			result = append(result, value)
		}
	}

	return result
}

// testRegistry registers the counter kinds next to the shipped ones.
func testRegistry() *beacon.Registry {
	registry := beacons.Default()

	newKind := func(name string, panics bool) beacon.Kind {
		return beacon.Kind{
			Name: name,
			Validate: func(cfg beacon.ConfigList) (bool, string) {
				return new(counterBeacon).Validate(cfg)
			},
			New: func(deps beacon.Deps) beacon.Beacon {
				return &counterBeacon{deps: deps, panics: panics}
			},
		}
	}

	registry.Register(newKind("counter", false))
	registry.Register(newKind("panicky", true))

	needsTool := newKind("needs_tool", false)
	needsTool.Available = func(caps beacon.Capabilities) error {
		_, err := caps.LookPath("frobnicate")
		return err
	}

	registry.Register(needsTool)

	return registry
}

// counterDefinition builds a counter definition ticking every interval.
func counterDefinition(name string, interval time.Duration, items ...beacon.Item) config.Definition {
	return config.Definition{
		Name:     name,
		Kind:     "counter",
		Interval: interval,
		Config:   beacon.ConfigList(items),
	}
}

// newTestEngine creates an engine publishing into a collector.
func newTestEngine(caps beacon.Capabilities, opts ...Option) (*Engine, *collector) {
	published := new(collector)
	source := &event.Source{Minion: "minion-1", Hostname: "host-1"}

	return New(testRegistry(), caps, source, published, opts...), published
}

// TestEngine_TicksOnInterval ticks immediately and then on every interval.
func TestEngine_TicksOnInterval(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, published := newTestEngine(new(fakeCapabilities))

		started := e.Apply(context.Background(), []config.Definition{counterDefinition("counter", 10*time.Second)})
		require.Equal(t, 1, started)

		synctest.Wait()
		require.Equal(t, []int{1}, published.seen("counter"))

		time.Sleep(30 * time.Second)
		synctest.Wait()
		require.Equal(t, []int{1, 2, 3, 4}, published.seen("counter"))

		e.Stop()
		require.Empty(t, e.Running())

		published.mu.Lock()
		defer published.mu.Unlock()

		require.Equal(t, "salt/beacon/minion-1/counter/tick", published.envelopes[0].Tag)
	})
}

// TestEngine_ApplyReconciles keeps unchanged instances and restarts changed ones fresh.
func TestEngine_ApplyReconciles(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		store := state.NewMemoryContext()
		e, published := newTestEngine(new(fakeCapabilities), WithContextStore(store))
		ctx := context.Background()

		first := counterDefinition("first", 10*time.Second)
		second := counterDefinition("second", 10*time.Second)

		require.Equal(t, 2, e.Apply(ctx, []config.Definition{first, second}))

		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.Equal(t, []int{1, 2}, published.seen("first"))
		require.Equal(t, []int{1, 2}, published.seen("second"))

		changed := counterDefinition("second", 10*time.Second, beacon.Item{Key: "verbose", Value: true})
		require.Equal(t, 1, e.Apply(ctx, []config.Definition{first, changed}))

		synctest.Wait()
		require.Equal(t, []int{1, 2}, published.seen("first"))
		require.Equal(t, []int{1, 2, 1}, published.seen("second"))

		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.Equal(t, []int{1, 2, 3}, published.seen("first"))
		require.Equal(t, []int{1, 2, 1, 2}, published.seen("second"))

		disabled := first
		disabled.Disabled = true
		require.Zero(t, e.Apply(ctx, []config.Definition{disabled}))
		require.Empty(t, e.Running())

		_, ok := store.Get(beacon.ContextKey("second"))
		require.False(t, ok)

		e.Stop()
	})
}

// TestEngine_RejectsBadDefinitions never starts invalid or unavailable beacons.
func TestEngine_RejectsBadDefinitions(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		caps := &fakeCapabilities{missing: map[string]bool{"frobnicate": true}}
		e, _ := newTestEngine(caps)

		definitions := []config.Definition{
			counterDefinition("rejected", time.Second, beacon.Item{Key: "reject", Value: true}),
			{Name: "unknown", Kind: "unknown", Interval: time.Second},
			{Name: "shape", Kind: "counter", Interval: time.Second, Err: beacon.ErrNotList},
			{Name: "tool", Kind: "needs_tool", Interval: time.Second},
			counterDefinition("good", time.Second),
		}

		require.Equal(t, 1, e.Apply(context.Background(), definitions))
		require.Equal(t, []string{"good"}, e.Running())

		e.Stop()
	})
}

// TestEngine_OnceRecoversPanics runs each beacon once and survives a panicking tick.
func TestEngine_OnceRecoversPanics(t *testing.T) {
	t.Parallel()

	caps := &fakeCapabilities{processes: []string{"nginx"}}
	e, published := newTestEngine(caps)

	definitions := []config.Definition{
		{Name: "boom", Kind: "panicky", Interval: time.Second},
		counterDefinition("counter", time.Second),
		{
			Name:     "watch",
			Kind:     "ps",
			Interval: time.Second,
			Config: beacon.ConfigList{{Key: "processes", Value: map[string]any{
				"nginx": "running",
				"sshd":  "stopped",
			}}},
		},
		{Name: "off", Kind: "counter", Interval: time.Second, Disabled: true},
	}

	envelopes, err := e.Once(context.Background(), definitions)
	require.NoError(t, err)
	require.Len(t, envelopes, 3)
	require.Equal(t, "counter", envelopes[0].Beacon)
	require.Equal(t, beacon.Event{"nginx": "Running"}, envelopes[1].Data)
	require.Equal(t, beacon.Event{"sshd": "Stopped"}, envelopes[2].Data)
	require.Equal(t, "salt/beacon/minion-1/watch/", envelopes[1].Tag)
	require.Len(t, published.seen("counter"), 1)
}

// TestEngine_OnceReportsInvalid joins the errors of beacons that could not run.
func TestEngine_OnceReportsInvalid(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(new(fakeCapabilities))

	envelopes, err := e.Once(context.Background(), []config.Definition{
		counterDefinition("rejected", time.Second, beacon.Item{Key: "reject", Value: true}),
		{Name: "shape", Kind: "counter", Interval: time.Second, Err: beacon.ErrNotSingleKeyMapping},
	})
	require.Empty(t, envelopes)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "Configuration for counter beacon must be a list.")
}

// TestCheck reports validity and availability separately.
func TestCheck(t *testing.T) {
	t.Parallel()

	caps := &fakeCapabilities{missing: map[string]bool{"frobnicate": true}}

	results := Check(testRegistry(), caps, []config.Definition{
		counterDefinition("good", time.Second),
		counterDefinition("rejected", time.Second, beacon.Item{Key: "reject", Value: true}),
		{Name: "tool", Kind: "needs_tool", Interval: time.Second, Disabled: true},
		{Name: "shape", Kind: "ps", Err: beacon.ErrNotList},
	})

	require.Len(t, results, 4)
	require.True(t, results[0].Valid)
	require.Equal(t, beacon.ValidMessage, results[0].Message)
	require.False(t, results[1].Valid)
	require.True(t, results[2].Valid)
	require.Error(t, results[2].Unavailable)
	require.Contains(t, results[2].String(), "[disabled]")
	require.Contains(t, results[2].String(), "[unavailable: frobnicate not found]")
	require.False(t, results[3].Valid)
	require.Equal(t, "shape (ps): invalid: Configuration for ps beacon must be a list.", results[3].String())
}

// TestInstance_LogLevelOverride lowers the level of a single beacon's logger.
func TestInstance_LogLevelOverride(t *testing.T) {
	t.Parallel()

	quiet := newInstance(counterDefinition("quiet", time.Second), new(counterBeacon))
	require.False(t, logger.FromContext(quiet.context(context.Background())).Desugar().Core().Enabled(zapcore.DebugLevel))

	verbose := counterDefinition("verbose", time.Second)
	verbose.LogLevel = "debug"

	chatty := newInstance(verbose, new(counterBeacon))
	require.True(t, logger.FromContext(chatty.context(context.Background())).Desugar().Core().Enabled(zapcore.DebugLevel))
}

// TestEngine_ApplyAfterStop starts nothing once the engine stopped.
func TestEngine_ApplyAfterStop(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(new(fakeCapabilities))
	e.Stop()

	require.Zero(t, e.Apply(context.Background(), []config.Definition{counterDefinition("late", time.Second)}))
	require.Empty(t, e.Running())
}
