package host

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-ps"
)

// ProcessNames returns the executable names of the running processes,
// each name once. Processes exiting while the table is read are skipped
// by the lister.
func (h *Host) ProcessNames(_ context.Context) ([]string, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	seen := make(map[string]struct{}, len(processList))
	names := make([]string, 0, len(processList))

	for _, process := range processList {
		name := process.Executable()
		if _, ok := seen[name]; ok || name == "" {
			continue
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}
