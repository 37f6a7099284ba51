//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	api "github.com/oshokin/beacon-engine/internal/api/grpc/events"
	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/service/events"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_Stream receives published envelopes until the handler stops it.
func TestClient_Stream(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(8)
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	api.Register(server, api.NewServer(hub))

	go func() {
		_ = server.Serve(listener)
	}()

	defer server.Stop()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	defer conn.Close()

	client := NewClient(conn, WithWaitForReady(true))
	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errDone := errors.New("done")
	received := make(chan *event.Envelope, 1)
	finished := make(chan error, 1)

	go func() {
		finished <- client.Stream(ctx, func(envelope *event.Envelope) error {
			received <- envelope

			return errDone
		})
	}()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Publish(ctx, event.New(&event.Source{Minion: "m"}, "ps", beacon.Event{"nginx": "Running"}, time.Now()))

	envelope := <-received
	require.Equal(t, "salt/beacon/m/ps/", envelope.Tag)
	require.ErrorIs(t, <-finished, errDone)
}

// TestClient_StreamRequiresHandler rejects a nil handler.
func TestClient_StreamRequiresHandler(t *testing.T) {
	t.Parallel()

	require.Error(t, new(Client).Stream(context.Background(), nil))
}
