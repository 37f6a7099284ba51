package host

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	// dpkgUnknownPackageExitCode is returned by dpkg-query for packages it never saw.
	dpkgUnknownPackageExitCode = 1
	// aptNoCandidate marks packages without an installable version.
	aptNoCandidate = "(none)"
)

// InstalledVersion returns the installed version of pkg or an empty string.
func (h *Host) InstalledVersion(ctx context.Context, pkg string) (string, error) {
	output, err := h.RunCommand(ctx, "", "dpkg-query", "-W", "-f=${Status} ${Version}", pkg)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == dpkgUnknownPackageExitCode {
			return "", nil
		}

		return "", fmt.Errorf("query installed version of %s: %w", pkg, err)
	}

	return parseDpkgStatus(output), nil
}

// LatestVersion returns the candidate version of pkg when it differs from
// the installed one, optionally refreshing the package lists first.
func (h *Host) LatestVersion(ctx context.Context, pkg string, refresh bool) (string, error) {
	if refresh {
		if _, err := h.RunCommand(ctx, "", "apt-get", "update", "-q"); err != nil {
			return "", fmt.Errorf("refresh package lists: %w", err)
		}
	}

	output, err := h.RunCommand(ctx, "", "apt-cache", "policy", pkg)
	if err != nil {
		return "", fmt.Errorf("query candidate version of %s: %w", pkg, err)
	}

	installed, candidate := parseAptPolicy(output)
	if candidate == "" || candidate == aptNoCandidate || candidate == installed {
		return "", nil
	}

	return candidate, nil
}

// parseDpkgStatus extracts the version from "install ok installed 1.2-3".
// Packages in any other state count as not installed.
func parseDpkgStatus(output string) string {
	fields := strings.Fields(output)
	if len(fields) < 4 || fields[2] != "installed" { //nolint:mnd // want, error flag, status, version.
		return ""
	}

	return fields[3]
}

// parseAptPolicy extracts the Installed and Candidate versions from `apt-cache policy`.
func parseAptPolicy(output string) (installed, candidate string) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		switch key {
		case "Installed":
			installed = strings.TrimSpace(value)
		case "Candidate":
			candidate = strings.TrimSpace(value)
		}
	}

	if installed == aptNoCandidate {
		installed = ""
	}

	return installed, candidate
}
