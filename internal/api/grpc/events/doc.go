// Package events implements the gRPC transport for the beacon event stream.
//
// The service has a single server-streaming method that forwards every
// envelope published by the engine to the subscriber. Messages are the
// well-known Struct and Empty types, so no generated code is needed and the
// stream can be consumed with protojson-aware tooling.
package events
