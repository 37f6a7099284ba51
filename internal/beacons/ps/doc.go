// Package ps implements the beacon that checks processes against their
// expected liveness.
package ps
