package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
)

// commNameLength is the length Linux truncates process command names to.
const commNameLength = 15

// errNotRegularFile is returned when the executable path is a directory or device.
var errNotRegularFile = errors.New("not a regular file")

// Run starts executable from its own directory and blocks until it exits.
// A macOS application bundle is opened with the open command.
// A missing executable or a failed start is reported as artifact.ErrLaunch.
// A non-zero exit status of the application is logged, not returned.
func Run(ctx context.Context, executable string) error {
	info, err := os.Stat(executable)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", artifact.ErrLaunch, executable, err)
	}

	var cmd *exec.Cmd

	switch {
	case info.Mode().IsRegular():
		cmd = exec.CommandContext(ctx, executable)
	case info.IsDir() && artifact.IsBundle(executable):
		// Bundles are started by LaunchServices; -W waits for the application to quit.
		cmd = exec.CommandContext(ctx, "open", "-W", "-n", executable)
	default:
		return fmt.Errorf("%w: %s: %w", artifact.ErrLaunch, executable, errNotRegularFile)
	}

	cmd.Dir = filepath.Dir(executable)
	hideWindow(cmd)

	logger.InfoKV(ctx, "Running application", "executable", executable)

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %w", artifact.ErrLaunch, executable, err)
	}

	err = cmd.Wait()

	var exitErr *exec.ExitError

	switch {
	case err == nil:
		logger.Info(ctx, "Application exited")
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &exitErr):
		logger.WarnKV(ctx, "Application exited with non-zero status", "code", exitErr.ExitCode())
	default:
		return fmt.Errorf("%w: wait for %s: %w", artifact.ErrLaunch, executable, err)
	}

	return nil
}

// StopRunning kills every process whose executable name matches name, except
// the current process, and returns how many were stopped. Every process on the
// host is considered, so name should be specific to the application.
//
// On Linux the process list reports the kernel command name, which is cut to
// 15 bytes; a reported name of exactly that length matches any name it prefixes.
func StopRunning(ctx context.Context, name string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()
	stopped := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID || !matchesExecutable(process.Executable(), name) {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return stopped, fmt.Errorf("find process %d: %w", process.Pid(), err)
		}

		if err = runningProcess.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return stopped, fmt.Errorf("kill process %d: %w", process.Pid(), err)
		}

		// Reap the process if it happens to be our child; otherwise this is a no-op error.
		_, _ = runningProcess.Wait()

		logger.InfoKV(ctx, "Stopped running instance", "pid", process.Pid(), "executable", name)

		stopped++
	}

	return stopped, nil
}

// matchesExecutable compares a reported process name with an executable name,
// allowing for the Linux command name truncation.
func matchesExecutable(reported, name string) bool {
	if reported == name {
		return true
	}

	return runtime.GOOS == "linux" &&
		len(reported) == commNameLength &&
		len(name) > commNameLength &&
		strings.HasPrefix(name, reported)
}
