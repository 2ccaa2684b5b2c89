package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
)

const (
	// MarkerFilename is created in the output directory for the duration of a run.
	MarkerFilename = ".electron-packager.marker"

	// markerLifetime is the age after which a marker is considered abandoned.
	markerLifetime = 30 * time.Minute

	// markerFileMode is the permission of the marker file.
	markerFileMode os.FileMode = 0o600

	// outputDirMode is used when the output directory is missing.
	outputDirMode os.FileMode = 0o755
)

// errRunInProgress indicates that another run owns the output directory.
var errRunInProgress = errors.New("another run is in progress")

// acquireMarker creates the run marker in outputDir and returns a function removing it.
// A marker older than markerLifetime is replaced.
func acquireMarker(ctx context.Context, outputDir string) (func(), error) {
	if err := os.MkdirAll(outputDir, outputDirMode); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", artifact.ErrFilesystem, err)
	}

	path := filepath.Join(outputDir, MarkerFilename)

	err := createMarker(path)
	if errors.Is(err, os.ErrExist) {
		var stale bool

		stale, err = isMarkerStale(path)
		if err != nil {
			return nil, err
		}

		if !stale {
			return nil, fmt.Errorf("%w: marker %s", errRunInProgress, path)
		}

		logger.WarnKV(ctx, "The run marker is too old, replacing it", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: remove stale marker: %w", artifact.ErrFilesystem, err)
		}

		err = createMarker(path)
	}

	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: marker %s", errRunInProgress, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: create marker: %w", artifact.ErrFilesystem, err)
	}

	logger.DebugKV(ctx, "Run marker created", "path", path)

	return func() {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove the run marker", "path", path, "error", removeErr)
		}
	}, nil
}

// createMarker exclusively creates the marker holding the current process id.
func createMarker(path string) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, markerFileMode)
	if err != nil {
		return err
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	return err
}

// isMarkerStale reports whether the marker outlived markerLifetime.
func isMarkerStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		// Removed concurrently, so it can be recreated.
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: stat marker: %w", artifact.ErrFilesystem, err)
	}

	return time.Since(info.ModTime()) > markerLifetime, nil
}
