// Package client follows the beacond event stream for beacon-tail.
//
// The command connects to the engine, prints every envelope as one JSON line
// and, when asked to wait, reconnects after the engine goes away.
package client
