package packager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/electron-packager/internal/config"
	"github.com/oshokin/electron-packager/internal/domain/artifact"
)

// TestOptionsApply verifies that only non-empty overrides replace file settings.
func TestOptionsApply(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Platform = artifact.PlatformWindows
	cfg.ExecutableExtension = ".exe"
	cfg.WorkPath = "/opt/demo"
	cfg.DownloadTimeout = time.Minute

	opts := &Options{
		AppName:      "demo",
		Platform:     artifact.PlatformLinux,
		KeepArchive:  true,
		SkipShortcut: true,
		SkipLaunch:   true,
	}
	opts.apply(cfg)

	require.Equal(t, "demo", cfg.AppName)
	require.Equal(t, artifact.PlatformLinux, cfg.Platform)
	require.Empty(t, cfg.ExecutableExtension)
	require.Equal(t, "/opt/demo", cfg.WorkPath)
	require.Equal(t, time.Minute, cfg.DownloadTimeout)
	require.True(t, cfg.KeepArchive)
	require.False(t, cfg.CreateShortcut)
	require.False(t, cfg.Launch)
	require.True(t, cfg.StopRunning)
}

// TestOptionsApply_ExplicitExtension keeps an explicit extension when the platform changes.
func TestOptionsApply_ExplicitExtension(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	opts := &Options{Platform: artifact.PlatformWindows, ExecutableExtension: ".bin"}
	opts.apply(cfg)

	require.Equal(t, ".bin", cfg.ExecutableExtension)
}

// TestResolveConfig_SavesSettings persists the merged settings when asked to.
func TestResolveConfig_SavesSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "settings.yaml")
	project := filepath.Join(dir, "project")
	require.NoError(t, os.Mkdir(project, 0o755))

	opts := &Options{
		ConfigPath:     configPath,
		SaveConfig:     true,
		ProjectPath:    project,
		AppName:        "demo",
		Platform:       artifact.PlatformWindows,
		Arch:           "x64",
		OutputPath:     filepath.Join(dir, "out"),
		WorkPath:       filepath.Join(dir, "work"),
		RuntimeVersion: "v25.3.0",
	}

	cfg, err := resolveConfig(context.Background(), opts)
	require.NoError(t, err)
	require.Empty(t, cfg.ExecutableExtension)
	require.Equal(t, "demo.exe", cfg.ExecutableName())

	saved, err := config.Load(configPath)
	require.NoError(t, err)
	require.Equal(t, cfg, saved)
}

// TestRun_InvalidSettings fails before touching the output directory.
func TestRun_InvalidSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "out")

	_, err := Run(context.Background(), &Options{
		ConfigPath:  filepath.Join(dir, "missing.yaml"),
		ProjectPath: filepath.Join(dir, "no-such-project"),
		OutputPath:  output,
		WorkPath:    filepath.Join(dir, "work"),
		Platform:    "beos",
	})
	require.Error(t, err)
	require.ErrorContains(t, err, "invalid settings")
	require.ErrorContains(t, err, "unsupported platform")

	_, err = os.Stat(output)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_OutputInsideProject fails at startup, before any download, for the
// default output path resolved inside the project.
func TestRun_OutputInsideProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	project := filepath.Join(dir, "project")
	require.NoError(t, os.Mkdir(project, 0o755))

	var requests atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)

		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	output := filepath.Join(project, config.DefaultOutputPath)

	_, err := Run(context.Background(), &Options{
		ConfigPath:      filepath.Join(dir, "missing.yaml"),
		ProjectPath:     project,
		Platform:        artifact.PlatformWindows,
		Arch:            "x64",
		OutputPath:      output,
		WorkPath:        filepath.Join(dir, "work"),
		URLTemplate:     ts.URL + "/{version}/{platform}-{arch}.zip",
		SkipShortcut:    true,
		SkipLaunch:      true,
		SkipStopRunning: true,
		HTTPClient:      ts.Client(),
	})
	require.ErrorContains(t, err, "output path must not be inside the project path")
	require.Zero(t, requests.Load())
	require.NoDirExists(t, output)
}

// TestAcquireMarker covers the exclusive, stale and release paths of the run marker.
func TestAcquireMarker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "out")
	markerPath := filepath.Join(output, MarkerFilename)

	release, err := acquireMarker(ctx, output)
	require.NoError(t, err)
	require.FileExists(t, markerPath)

	_, err = acquireMarker(ctx, output)
	require.ErrorIs(t, err, errRunInProgress)

	release()
	require.NoFileExists(t, markerPath)

	// An abandoned marker is replaced.
	require.NoError(t, os.WriteFile(markerPath, []byte("1"), markerFileMode))

	old := time.Now().Add(-2 * markerLifetime)
	require.NoError(t, os.Chtimes(markerPath, old, old))

	release, err = acquireMarker(ctx, output)
	require.NoError(t, err)

	info, err := os.Stat(markerPath)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), info.ModTime(), time.Minute)

	release()
	release()
	require.NoFileExists(t, markerPath)
}
