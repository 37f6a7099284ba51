package pkg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/beacon-engine/internal/beacon"
	"github.com/oshokin/beacon-engine/internal/repository/state"
)

var errLocked = errors.New("dpkg database is locked")

// fakePackages answers version queries from maps.
type fakePackages struct {
	// installed maps package names to installed versions.
	installed map[string]string
	// latest maps package names to newer available versions.
	latest map[string]string
	// failing makes queries for the named package fail.
	failing string
	// refreshes counts LatestVersion calls asking for a refresh.
	refreshes int
}

// InstalledVersion returns the canned installed version.
func (f *fakePackages) InstalledVersion(_ context.Context, pkg string) (string, error) {
	if pkg == f.failing {
		return "", errLocked
	}

	return f.installed[pkg], nil
}

// LatestVersion returns the canned newer version.
func (f *fakePackages) LatestVersion(_ context.Context, pkg string, refresh bool) (string, error) {
	if refresh {
		f.refreshes++
	}

	return f.latest[pkg], nil
}

// pkgs builds a configuration list watching names.
func pkgs(names ...any) beacon.ConfigList {
	return beacon.ConfigList{{Key: "pkgs", Value: names}}
}

// TestValidate covers the pkgs requirement.
func TestValidate(t *testing.T) {
	t.Parallel()

	ok, msg := Validate(pkgs("zsh", "apache2"))
	require.True(t, ok)
	require.Equal(t, beacon.ValidMessage, msg)

	ok, msg = Validate(beacon.ConfigList{{Key: "refresh", Value: true}})
	require.False(t, ok)
	require.Equal(t, "Configuration for pkg beacon requires list of pkgs.", msg)

	ok, _ = Validate(beacon.ConfigList{{Key: "pkgs", Value: "zsh"}})
	require.False(t, ok)

	ok, _ = Validate(append(pkgs("zsh"), beacon.Item{Key: "refresh", Value: "yes"}))
	require.False(t, ok)
}

// TestBeacon_FirstObservationSeedsOnly never fires on the first tick.
func TestBeacon_FirstObservationSeedsOnly(t *testing.T) {
	t.Parallel()

	packages := &fakePackages{
		installed: map[string]string{"zsh": "5.8", "apache2": "2.4.1"},
		latest:    map[string]string{"apache2": "2.4.2"},
	}
	store := state.NewMemoryContext()
	b := New(packages, store, "")

	require.Empty(t, b.Beacon(context.Background(), pkgs("zsh", "apache2", "nginx")))

	value, ok := store.Get("beacon.pkg")
	require.True(t, ok)
	require.Equal(t, map[string]Status{
		"zsh":     StatusInstalled,
		"apache2": StatusUpgrade,
		"nginx":   StatusNotInstalled,
	}, value)

	require.Empty(t, b.Beacon(context.Background(), pkgs("zsh", "apache2", "nginx")))
}

// TestBeacon_InstalledToUpgrade fires once with the newer version.
func TestBeacon_InstalledToUpgrade(t *testing.T) {
	t.Parallel()

	packages := &fakePackages{
		installed: map[string]string{"zsh": "5.8"},
		latest:    map[string]string{},
	}
	b := New(packages, state.NewMemoryContext(), "pkg")
	cfg := pkgs("zsh")

	require.Empty(t, b.Beacon(context.Background(), cfg))

	packages.latest["zsh"] = "5.9"
	require.Equal(t, []beacon.Event{{"pkg": "zsh", "version": "5.9", "status": "upgrade"}}, b.Beacon(context.Background(), cfg))
	require.Empty(t, b.Beacon(context.Background(), cfg))

	// Upgrade applied.
	packages.installed["zsh"] = "5.9"
	delete(packages.latest, "zsh")
	require.Equal(t, []beacon.Event{{"pkg": "zsh", "version": "5.9", "status": "installed"}}, b.Beacon(context.Background(), cfg))

	// Removed: the version is reported as nil.
	delete(packages.installed, "zsh")
	require.Equal(t, []beacon.Event{{"pkg": "zsh", "version": nil, "status": "not-installed"}}, b.Beacon(context.Background(), cfg))
}

// TestBeacon_QueryFailureKeepsStatus skips a package whose query fails.
func TestBeacon_QueryFailureKeepsStatus(t *testing.T) {
	t.Parallel()

	packages := &fakePackages{installed: map[string]string{"zsh": "5.8"}}
	b := New(packages, state.NewMemoryContext(), "pkg")
	cfg := pkgs("zsh")

	require.Empty(t, b.Beacon(context.Background(), cfg))

	packages.failing = "zsh"
	require.Empty(t, b.Beacon(context.Background(), cfg))

	packages.failing = ""
	require.Empty(t, b.Beacon(context.Background(), cfg))
}

// TestBeacon_RefreshAndIsolation honours refresh and keeps instances apart.
func TestBeacon_RefreshAndIsolation(t *testing.T) {
	t.Parallel()

	packages := &fakePackages{installed: map[string]string{"zsh": "5.8"}}
	store := state.NewMemoryContext()

	first := New(packages, store, "pkg_first")
	second := New(packages, store, "pkg_second")

	first.Beacon(context.Background(), append(pkgs("zsh"), beacon.Item{Key: "refresh", Value: true}))
	require.Equal(t, 1, packages.refreshes)

	// The second instance has not seen zsh yet, so it only seeds.
	packages.latest = map[string]string{"zsh": "5.9"}
	require.Empty(t, second.Beacon(context.Background(), pkgs("zsh")))
	require.Len(t, first.Beacon(context.Background(), pkgs("zsh")), 1)
}
