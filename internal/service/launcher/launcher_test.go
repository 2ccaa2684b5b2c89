package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
)

// writeScript creates a shell script with the provided body and mode.
func writeScript(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o600))
	require.NoError(t, os.Chmod(path, mode))

	return path
}

// TestRun_MissingExecutable reports a launch error for an absent file.
func TestRun_MissingExecutable(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), filepath.Join(t.TempDir(), "demo.exe"))
	require.ErrorIs(t, err, artifact.ErrLaunch)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = Run(context.Background(), t.TempDir())
	require.ErrorIs(t, err, artifact.ErrLaunch)
	require.ErrorIs(t, err, errNotRegularFile)
}

// TestRun_WaitsForExit runs a script to completion, tolerating a non-zero exit.
// Not parallel: executing a file written concurrently with a fork can fail with ETXTBSY.
func TestRun_WaitsForExit(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")

	require.NoError(t, Run(context.Background(), writeScript(t, "touch '"+marker+"'", 0o755)))

	_, err := os.Stat(marker)
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), writeScript(t, "exit 3", 0o755)))
}

// TestRun_NotExecutable reports a launch error when the file cannot be started.
func TestRun_NotExecutable(t *testing.T) {
	err := Run(context.Background(), writeScript(t, "exit 0", 0o644))
	require.ErrorIs(t, err, artifact.ErrLaunch)
}

// TestStopRunning_NoMatches leaves unrelated processes alone.
func TestStopRunning_NoMatches(t *testing.T) {
	t.Parallel()

	stopped, err := StopRunning(context.Background(), "electron-packager-test-no-such-process")
	require.NoError(t, err)
	require.Zero(t, stopped)
}

// TestStopRunning_KillsMatchingProcess stops a child whose name is longer than
// the Linux command name limit.
// Not parallel: the script is executed right after being written.
func TestStopRunning_KillsMatchingProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("relies on Linux command names")
	}

	name := fmt.Sprintf("stop%011d-running-app", time.Now().UnixNano()%1e11)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nread line\n"), 0o600))
	require.NoError(t, os.Chmod(path, 0o755))

	cmd := exec.Command(path)

	// An open stdin keeps the script blocked in read.
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid

	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		process, findErr := ps.FindProcess(pid)

		return findErr == nil && process != nil && process.Executable() == name[:commNameLength]
	}, 5*time.Second, 20*time.Millisecond)

	stopped, err := StopRunning(context.Background(), name)
	require.NoError(t, err)
	require.Equal(t, 1, stopped)

	require.Eventually(t, func() bool {
		process, findErr := ps.FindProcess(pid)

		return findErr == nil && process == nil
	}, 5*time.Second, 20*time.Millisecond)
}

// TestMatchesExecutable covers exact names and truncated command names.
func TestMatchesExecutable(t *testing.T) {
	t.Parallel()

	require.True(t, matchesExecutable("demo.exe", "demo.exe"))
	require.False(t, matchesExecutable("demo", "demo.exe"))
	require.False(t, matchesExecutable("electron-packag", "electron-builder-app"))

	long := "electron-packager-demo"
	require.Equal(t, runtime.GOOS == "linux", matchesExecutable(long[:commNameLength], long))
	require.False(t, matchesExecutable(long[:commNameLength-1], long))
}
