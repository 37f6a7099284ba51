package client

import (
	"context"
	"io"
	"os"
	"time"

	api "github.com/oshokin/beacon-engine/internal/api/grpc/events"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/logger"
	"github.com/oshokin/beacon-engine/internal/service/common"
)

// Options configures the event stream follower.
type Options struct {
	// Address of the beacond event stream, DefaultAddress when empty.
	Address string

	// Wait reconnects instead of failing when the stream is unavailable.
	Wait bool

	// RetryInterval is the delay between reconnects in wait mode.
	RetryInterval time.Duration

	// Output receives the JSON lines; stdout when nil.
	Output io.Writer
}

const (
	// DefaultAddress is where beacon-tail looks for beacond.
	DefaultAddress = "127.0.0.1:50061"

	// defaultRetryInterval defines the reconnect delay in wait mode.
	defaultRetryInterval = 1 * time.Second
)

// Run prints the event stream until cancellation or, unless waiting, the first failure.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "beacon-tail")

	address := opts.Address
	if address == "" {
		address = DefaultAddress
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	client, err := common.Dial(ctx, address, common.WithWaitForReady(opts.Wait))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Following events", "address", address)

	printEnvelope := func(envelope *event.Envelope) error {
		message, err := api.ToProto(envelope)
		if err != nil {
			return err
		}

		line, err := api.MarshalJSONLine(message)
		if err != nil {
			return err
		}

		_, err = output.Write(line)

		return err
	}

	for {
		err = client.Stream(ctx, printEnvelope)

		switch {
		case ctx.Err() != nil:
			return nil
		case !opts.Wait:
			return err
		case err != nil:
			// Log error but continue retrying for transient failures.
			logger.WarnKV(ctx, "Event stream failed, reconnecting", "error", err)
		default:
			logger.Info(ctx, "Event stream ended, reconnecting")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryInterval):
		}
	}
}
