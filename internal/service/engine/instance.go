package engine

import (
	"context"
	"time"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/config"
	"github.com/oshokin/beacon-engine/internal/logger"
)

// instance is one running beacon.
type instance struct {
	// definition is the settings the instance was started from.
	definition config.Definition
	// beacon owns the instance state.
	beacon beacon.Beacon

	// cancel stops the run loop.
	cancel context.CancelFunc
	// done is closed when the run loop returns.
	done chan struct{}
}

func newInstance(definition config.Definition, loaded beacon.Beacon) *instance {
	return &instance{
		definition: definition,
		beacon:     loaded,
		cancel:     func() {},
		done:       make(chan struct{}),
	}
}

// context names the instance logger and applies its level override.
func (i *instance) context(ctx context.Context) context.Context {
	ctx = logger.WithFields(logger.WithName(ctx, i.definition.Kind), "beacon", i.definition.Name)

	if i.definition.LogLevel == "" {
		return ctx
	}

	if level, ok := logger.ParseLogLevel(i.definition.LogLevel); ok {
		ctx = logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(logger.WithLevel(level)))
	}

	return ctx
}

// start launches the run loop on the engine's wait group.
func (i *instance) start(ctx context.Context, e *Engine) {
	ctx, i.cancel = context.WithCancel(i.context(ctx))

	e.wg.Go(func() {
		i.run(ctx, e)
	})
}

// run ticks immediately and then on every interval until ctx is done.
func (i *instance) run(ctx context.Context, e *Engine) {
	defer close(i.done)

	logger.InfoKV(ctx, "Beacon started", "interval", i.definition.Interval.String())

	ticker := time.NewTicker(i.definition.Interval)
	defer ticker.Stop()

	e.tick(ctx, i)

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Beacon stopped")
			return
		case <-ticker.C:
			e.tick(ctx, i)
		}
	}
}

// stop cancels the run loop and waits for the tick in progress.
func (i *instance) stop() {
	i.cancel()
	<-i.done
}
