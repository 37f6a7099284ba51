package events

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/domain/event"
	hub "github.com/oshokin/beacon-engine/internal/service/events"
)

// startServer serves the event service over an in-memory listener and returns a client connection.
func startServer(t *testing.T, h Hub) *grpc.ClientConn {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, NewServer(h))

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// TestServer_StreamsPublishedEvents exercises Subscribe end-to-end over gRPC.
func TestServer_StreamsPublishedEvents(t *testing.T) {
	t.Parallel()

	h := hub.NewHub(8)
	conn := startServer(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := Subscribe(ctx, conn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	source := &event.Source{Minion: "web01", Hostname: "web01"}
	h.Publish(ctx, event.New(source, "adb", beacon.Event{"device": "emulator-5554", "state": "device", "tag": "device"}, time.Now()))

	message, err := stream.Recv()
	require.NoError(t, err)

	got, err := FromProto(message)
	require.NoError(t, err)
	require.Equal(t, "salt/beacon/web01/adb/device", got.Tag)
	require.Equal(t, "emulator-5554", got.Data["device"])

	cancel()

	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

// TestServer_HubClosed ends the stream with Unavailable when the engine stops.
func TestServer_HubClosed(t *testing.T) {
	t.Parallel()

	h := hub.NewHub(8)
	conn := startServer(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := Subscribe(ctx, conn)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.Close()

	_, err = stream.Recv()
	require.Equal(t, codes.Unavailable, status.Code(err))
}
