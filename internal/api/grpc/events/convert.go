package events

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/domain/event"
)

// Field names of the wire message.
const (
	fieldTimestamp = "timestamp"
	fieldTag       = "tag"
	fieldBeacon    = "beacon"
	fieldMinion    = "minion"
	fieldHostname  = "hostname"
	fieldData      = "data"
)

// ErrMalformedEnvelope is returned when a wire message lacks required fields.
var ErrMalformedEnvelope = errors.New("malformed event envelope")

// ToProto converts a domain envelope to its wire message.
func ToProto(envelope *event.Envelope) (*structpb.Struct, error) {
	if envelope == nil {
		return nil, ErrMalformedEnvelope
	}

	fields := map[string]any{
		fieldTimestamp: envelope.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldTag:       envelope.Tag,
		fieldBeacon:    envelope.Beacon,
		fieldData:      map[string]any(envelope.Data),
	}

	if envelope.Source != nil {
		fields[fieldMinion] = envelope.Source.Minion
		fields[fieldHostname] = envelope.Source.Hostname
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", envelope.Tag, err)
	}

	return message, nil
}

// FromProto converts a wire message back to a domain envelope.
// Numbers come back as float64, the JSON number model of Struct.
func FromProto(message *structpb.Struct) (*event.Envelope, error) {
	if message == nil {
		return nil, ErrMalformedEnvelope
	}

	fields := message.AsMap()

	tag, _ := fields[fieldTag].(string)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is missing", ErrMalformedEnvelope)
	}

	envelope := &event.Envelope{Tag: tag}
	envelope.Beacon, _ = fields[fieldBeacon].(string)

	if raw, ok := fields[fieldTimestamp].(string); ok {
		timestamp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
		}

		envelope.Timestamp = timestamp
	}

	minion, hasMinion := fields[fieldMinion].(string)
	hostname, hasHostname := fields[fieldHostname].(string)

	if hasMinion || hasHostname {
		envelope.Source = &event.Source{Minion: minion, Hostname: hostname}
	}

	if data, ok := fields[fieldData].(map[string]any); ok {
		envelope.Data = beacon.Event(data)
	}

	return envelope, nil
}

// MarshalJSONLine renders a wire message as a single protojson line.
func MarshalJSONLine(message *structpb.Struct) ([]byte, error) {
	data, err := protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return append(data, '\n'), nil
}
