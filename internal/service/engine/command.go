package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/beacon-engine/internal/api/grpc/events"
	"github.com/oshokin/beacon-engine/internal/beacons"
	"github.com/oshokin/beacon-engine/internal/config"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/host"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/service/common"
	"github.com/oshokin/beacon-engine/internal/service/events"
)

// Options controls the beacond process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the log level from the settings file.
	LogLevel string
	// ListenAddress overrides the event stream address from the settings file.
	ListenAddress string
	// Once runs every beacon a single time and prints the events.
	Once bool
	// ReloadDelay is how long to wait for settings writes to settle.
	ReloadDelay time.Duration
	// Output receives the events printed in once mode; stdout when nil.
	Output io.Writer
}

// ErrInvalidBeacons is returned by Validate when any beacon is rejected.
var ErrInvalidBeacons = errors.New("invalid beacon configuration found")

// Run starts every configured beacon and blocks until ctx is canceled.
// The settings file is watched and the beacons are reconciled on change.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "beacond")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	source, err := common.DetectSource(settings.MinionID)
	if err != nil {
		return fmt.Errorf("detect source: %w", err)
	}

	caps := host.New(host.WithCommandTimeout(settings.CommandTimeout))
	registry := beacons.Default()

	if opts.Once {
		return runOnce(ctx, New(registry, caps, source, nil), settings, opts.Output)
	}

	hub := events.NewHub(events.DefaultBufferSize)
	engine := New(registry, caps, source, hub)

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	group, groupCtx := errgroup.WithContext(ctx)

	started := engine.Apply(groupCtx, settings.Definitions())
	logger.InfoKV(ctx, "Beacon engine started", "minion", source.Minion, "beacons", started)

	group.Go(func() error {
		delay := opts.ReloadDelay
		if delay <= 0 {
			delay = DefaultReloadDelay
		}

		err := watchFile(groupCtx, settingsPath(opts), delay, func(ctx context.Context) {
			reload(ctx, engine, opts)
		})
		if err != nil {
			logger.WarnKV(ctx, "Settings reload disabled", "error", err)
		}

		return nil
	})

	if listenAddress != "" {
		group.Go(func() error {
			return serve(groupCtx, listenAddress, hub)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		engine.Stop()
		hub.Close()

		return nil
	})

	err = group.Wait()

	published, dropped := hub.Stats()
	logger.InfoKV(ctx, "Beacon engine stopped", "published", published, "dropped", dropped)

	return err
}

// Validate checks every configured beacon and writes one line per beacon to w.
func Validate(ctx context.Context, opts *Options, w io.Writer) error {
	ctx = logger.WithName(ctx, "beacond")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	caps := host.New(host.WithCommandTimeout(settings.CommandTimeout))
	results := Check(beacons.Default(), caps, settings.Definitions())

	invalid := 0

	for _, result := range results {
		if !result.Valid {
			invalid++
		}

		if _, err = fmt.Fprintln(w, result.String()); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	logger.DebugKV(ctx, "Settings validated", "beacons", len(results), "invalid", invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidBeacons, invalid, len(results))
	}

	return nil
}

// loadSettings reads the settings file and configures logging from it.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(settingsPath(opts))
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	configureLogging(settings)

	return settings, nil
}

// configureLogging applies the log level and format of settings.
func configureLogging(settings *config.Config) {
	format, _ := logger.ParseFormat(settings.LogFormat)

	level := logger.Level()
	if parsed, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		level = parsed
	}

	logger.Configure(format, level)
}

// settingsPath returns the settings path with the default applied.
func settingsPath(opts *Options) string {
	if opts.ConfigPath == "" {
		return config.DefaultConfigFilename
	}

	return opts.ConfigPath
}

// reload re-reads the settings and reconciles the running beacons.
// A broken settings file keeps the current beacons running.
func reload(ctx context.Context, engine *Engine, opts *Options) {
	settings, err := config.Load(settingsPath(opts))
	if err != nil {
		logger.ErrorKV(ctx, "Settings reload failed, keeping current beacons", "error", err)
		return
	}

	if opts.LogLevel == "" {
		if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
			logger.SetLevel(level)
		}
	}

	started := engine.Apply(ctx, settings.Definitions())
	logger.InfoKV(ctx, "Settings reloaded", "started", started, "running", len(engine.Running()))
}

// runOnce ticks every beacon once and prints the envelopes as JSON lines.
func runOnce(ctx context.Context, engine *Engine, settings *config.Config, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	envelopes, runErr := engine.Once(ctx, settings.Definitions())

	for _, envelope := range envelopes {
		if err := writeEnvelope(w, envelope); err != nil {
			return err
		}
	}

	return runErr
}

// writeEnvelope prints envelope as one protojson line.
func writeEnvelope(w io.Writer, envelope *event.Envelope) error {
	message, err := api.ToProto(envelope)
	if err != nil {
		return err
	}

	line, err := api.MarshalJSONLine(message)
	if err != nil {
		return err
	}

	if _, err = w.Write(line); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// serve exposes the event stream until ctx is canceled.
func serve(ctx context.Context, listenAddress string, hub *events.Hub) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.Register(grpcServer, api.NewServer(hub))

	logger.InfoKV(ctx, "Event stream listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")

		// Open streams end only when the hub closes.
		hub.Close()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
