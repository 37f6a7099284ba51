// Package events fans beacon envelopes out to subscribers.
//
// Publishing never blocks the engine: every subscriber has a bounded buffer
// and envelopes that do not fit are dropped and counted.
package events
