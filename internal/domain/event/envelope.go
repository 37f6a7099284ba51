package event

import (
	"maps"
	"strings"
	"time"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// TagPrefix starts the tag of every beacon event.
const TagPrefix = "salt/beacon"

// Source identifies the host that produced an event.
type Source struct {
	// Minion is the engine identifier, the hostname unless configured.
	Minion string
	// Hostname is the machine name the engine runs on.
	Hostname string
}

// Clone returns a deep copy of the source.
func (s *Source) Clone() *Source {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Envelope is one beacon event as published to subscribers.
type Envelope struct {
	// Timestamp is when the tick producing the event finished.
	Timestamp time.Time
	// Source is the host that produced the event.
	Source *Source
	// Tag is the full event tag: salt/beacon/<minion>/<beacon>/<record tag>.
	Tag string
	// Beacon is the instance name that produced the event.
	Beacon string
	// Data is the record returned by the beacon.
	Data beacon.Event
}

// New wraps record into an envelope with the tag derived from the source and beacon name.
func New(source *Source, beaconName string, record beacon.Event, timestamp time.Time) *Envelope {
	return &Envelope{
		Timestamp: timestamp,
		Source:    source.Clone(),
		Tag:       Tag(source, beaconName, record.Tag()),
		Beacon:    beaconName,
		Data:      record.Clone(),
	}
}

// Tag builds the event tag. The record tag is appended when present.
func Tag(source *Source, beaconName, recordTag string) string {
	minion := ""
	if source != nil {
		minion = source.Minion
	}

	return strings.Join([]string{TagPrefix, minion, beaconName, recordTag}, "/")
}

// Clone returns a copy of the envelope to avoid leaking internal references.
func (e *Envelope) Clone() *Envelope {
	return &Envelope{
		Timestamp: e.Timestamp,
		Source:    e.Source.Clone(),
		Tag:       e.Tag,
		Beacon:    e.Beacon,
		Data:      maps.Clone(e.Data),
	}
}
