// Package event contains the envelope published for every beacon event.
//
// It defines Source (which host produced the event) and Envelope (the record
// with its full tag and timestamp) with Clone helpers to avoid leaking
// internal references to subscribers.
package event
