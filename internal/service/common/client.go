//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/beacon-engine/internal/api/grpc/events"
	"github.com/oshokin/beacon-engine/internal/domain/event"
)

// Client wraps the gRPC EventService with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the engine.
	conn grpc.ClientConnInterface
	// closer releases conn; nil when the connection is owned elsewhere.
	closer io.Closer

	// waitForReady makes the stream wait for the engine instead of failing fast.
	waitForReady bool
}

// Option configures client behaviour.
type Option func(*Client)

// WithWaitForReady blocks the subscription until the engine is reachable.
func WithWaitForReady(wait bool) Option {
	return func(c *Client) {
		c.waitForReady = wait
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errHandlerRequired is returned when Stream is called without a handler.
	errHandlerRequired = errors.New("handler must be provided")
)

// Dial establishes a gRPC connection to the engine.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial beacon engine: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn

	return client, nil
}

// NewClient wraps an existing connection. Close does not release it.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{conn: conn}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

// Stream subscribes to the engine and calls handle for every envelope.
// It returns nil when the engine ends the stream cleanly or ctx is cancelled.
func (c *Client) Stream(ctx context.Context, handle func(*event.Envelope) error) error {
	if handle == nil {
		return errHandlerRequired
	}

	var callOptions []grpc.CallOption
	if c.waitForReady {
		callOptions = append(callOptions, grpc.WaitForReady(true))
	}

	stream, err := api.Subscribe(ctx, c.conn, callOptions...)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		message, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}

		if err != nil {
			return fmt.Errorf("receive event: %w", err)
		}

		envelope, err := api.FromProto(message)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if err = handle(envelope); err != nil {
			return err
		}
	}
}
