package events

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/beacon-engine/internal/domain/event"
	"github.com/oshokin/beacon-engine/internal/logger"
)

// Hub abstracts the fan-out the transport layer subscribes to.
type Hub interface {
	Subscribe() (<-chan *event.Envelope, func())
}

// Server implements the EventService gRPC API.
type Server struct {
	// hub provides the envelopes published by the engine.
	hub Hub
}

var _ EventServiceServer = (*Server)(nil)

// NewServer wires the provided hub into a gRPC handler.
func NewServer(hub Hub) *Server {
	return &Server{
		hub: hub,
	}
}

// Subscribe forwards envelopes to the client until either side stops.
func (s *Server) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	envelopes, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	logger.Debug(ctx, "Subscriber connected")

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Subscriber disconnected")

			return nil
		case envelope, ok := <-envelopes:
			if !ok {
				return status.Error(codes.Unavailable, "event stream closed")
			}

			message, err := ToProto(envelope)
			if err != nil {
				logger.WarnKV(ctx, "Unable to encode event", "tag", envelope.Tag, "error", err)

				continue
			}

			if err = stream.Send(message); err != nil {
				return err
			}
		}
	}
}
