// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the beacon event stream and
// detects the identity of the host that emits events.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
