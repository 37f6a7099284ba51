package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/beacon-engine/internal/config"
)

// onceSettings watches a process that cannot exist on the test host.
const onceSettings = `minion_id: test-minion
log_level: warn
beacons:
  ps:
    - processes:
        beacon-engine-test-ghost: stopped
  adb:
    - states: [device]
    - disabled: true
`

// writeSettings stores contents in a temporary settings file.
func writeSettings(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(contents), config.DefaultFilePermissions))

	return path
}

// TestRun_Once prints the events of a single pass as JSON lines.
// Not parallel: it reconfigures the global logger.
func TestRun_Once(t *testing.T) {
	var output bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath: writeSettings(t, onceSettings),
		Once:       true,
		Output:     &output,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	require.Equal(t, "salt/beacon/test-minion/ps/", decoded["tag"])
	require.Equal(t, map[string]any{"beacon-engine-test-ghost": "Stopped"}, decoded["data"])
}

// TestValidate_ReportsEveryBeacon prints one line per beacon and fails on invalid ones.
// Not parallel: it reconfigures the global logger.
func TestValidate_ReportsEveryBeacon(t *testing.T) {
	var output bytes.Buffer

	err := Validate(context.Background(), &Options{ConfigPath: writeSettings(t, onceSettings)}, &output)
	require.NoError(t, err)
	require.Contains(t, output.String(), "ps (ps): ok: Valid beacon configuration")

	broken := onceSettings + `  pkg:
    refresh: true
`

	output.Reset()

	err = Validate(context.Background(), &Options{ConfigPath: writeSettings(t, broken)}, &output)
	require.ErrorIs(t, err, ErrInvalidBeacons)
	require.Contains(t, output.String(), "pkg (pkg): invalid: Configuration for pkg beacon must be a list.")
}

// TestRun_MissingSettings fails before starting anything.
func TestRun_MissingSettings(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.ErrorContains(t, err, "load settings")
}

// TestWatchFile calls back once a burst of writes settles.
func TestWatchFile(t *testing.T) {
	t.Parallel()

	path := writeSettings(t, onceSettings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- watchFile(ctx, path, 20*time.Millisecond, func(context.Context) {
			calls.Add(1)
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(onceSettings+"\n"), config.DefaultFilePermissions))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0o600))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
