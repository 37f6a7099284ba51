//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/oshokin/beacon-engine/internal/domain/event"
)

// DetectSource identifies the local host for event tags.
// The minion id falls back to the hostname when not configured.
func DetectSource(minionID string) (*event.Source, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	minionID = strings.TrimSpace(minionID)
	if minionID == "" {
		minionID = hostname
	}

	return &event.Source{
		Minion:   minionID,
		Hostname: hostname,
	}, nil
}
