package events

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "beacon.v1.EventService"
	// SubscribeMethod is the full method name of the event stream.
	SubscribeMethod = "/" + ServiceName + "/Subscribe"
)

// EventServiceServer is the server API of the event service.
type EventServiceServer interface {
	// Subscribe streams envelopes until the client goes away or the engine stops.
	Subscribe(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the event service for grpc.ServiceRegistrar.
//
//nolint:gochecknoglobals // Same shape as a protoc-generated descriptor.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "beacon/v1/events.proto",
}

// Register attaches srv to registrar.
func Register(registrar grpc.ServiceRegistrar, srv EventServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// Subscribe opens the event stream on conn.
func Subscribe(
	ctx context.Context,
	conn grpc.ClientConnInterface,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := conn.NewStream(ctx, &ServiceDesc.Streams[0], SubscribeMethod, opts...)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	client := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}

	if err = client.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}

	if err = client.CloseSend(); err != nil {
		return nil, fmt.Errorf("close send: %w", err)
	}

	return client, nil
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	request := new(emptypb.Empty)
	if err := stream.RecvMsg(request); err != nil {
		return err
	}

	server, _ := srv.(EventServiceServer)

	return server.Subscribe(request, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
