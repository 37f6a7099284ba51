package host

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/beacon-engine/internal/logger"
)

// RunCommand runs name with args and returns its standard output.
// When runAs is set the command is run through `sudo -n -u runAs`.
func (h *Host) RunCommand(ctx context.Context, runAs string, name string, args ...string) (string, error) {
	callCtx, cancel := h.callContext(ctx)
	defer cancel()

	if runAs != "" {
		args = append([]string{"-n", "-u", runAs, "--", name}, args...)
		name = "sudo"
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(callCtx, name, args...) //nolint:gosec // Commands come from beacon implementations, not user input.
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugKV(ctx, "Running command", "command", name, "args", args)

	if err := cmd.Run(); err != nil {
		if message := strings.TrimSpace(stderr.String()); message != "" {
			return "", fmt.Errorf("run %s: %w: %s", name, err, message)
		}

		return "", fmt.Errorf("run %s: %w", name, err)
	}

	return stdout.String(), nil
}
