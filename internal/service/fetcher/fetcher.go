package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
	"github.com/oshokin/electron-packager/internal/version"
)

// defaultDirMode is used for directories created by the fetcher.
const defaultDirMode os.FileMode = 0o755

// errBadHTTPStatus indicates a non-successful response.
var errBadHTTPStatus = errors.New("unexpected http status")

// Fetcher downloads and extracts runtime archives.
type Fetcher struct {
	// client performs the download request.
	client *http.Client
	// urlTemplate is rendered with the archive source to build the URL.
	urlTemplate string
	// layout names the archive file and the extraction directory.
	layout artifact.Layout
	// keepArchive retains the downloaded archive after extraction.
	keepArchive bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithURLTemplate sets the download URL template.
func WithURLTemplate(template string) Option {
	return func(f *Fetcher) {
		if template != "" {
			f.urlTemplate = template
		}
	}
}

// WithLayout overrides the archive and extraction directory names.
func WithLayout(layout artifact.Layout) Option {
	return func(f *Fetcher) {
		f.layout = layout
	}
}

// WithKeepArchive retains the downloaded archive instead of removing it.
func WithKeepArchive(keep bool) Option {
	return func(f *Fetcher) {
		f.keepArchive = keep
	}
}

// New creates a Fetcher. Without options it downloads Electron releases from
// GitHub with no request timeout and removes the archive after extraction.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		urlTemplate: artifact.DefaultURLTemplate,
		layout:      artifact.DefaultLayout(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the archive described by source into destDir and extracts
// it into a clean directory. It returns the absolute path of that directory.
func (f *Fetcher) Fetch(ctx context.Context, source artifact.ArchiveSource, destDir string) (string, error) {
	archiveURL := source.URL(f.urlTemplate)
	archivePath := filepath.Join(destDir, f.layout.ArchiveName)

	extractPath, err := filepath.Abs(filepath.Join(destDir, f.layout.ExtractDir))
	if err != nil {
		return "", fmt.Errorf("%w: resolve extraction path: %w", artifact.ErrFilesystem, err)
	}

	logger.InfoKV(ctx, "Downloading runtime", "version", source.Version, "url", archiveURL)

	if err = f.download(ctx, archiveURL, archivePath); err != nil {
		return "", err
	}

	if f.keepArchive {
		logger.InfoKV(ctx, "Keeping downloaded archive", "path", archivePath)
	} else {
		defer func() {
			if removeErr := os.Remove(archivePath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				logger.WarnKV(ctx, "Could not remove downloaded archive", "path", archivePath, "error", removeErr)
			}
		}()
	}

	if err = os.RemoveAll(extractPath); err != nil {
		return "", fmt.Errorf("%w: remove previous extraction: %w", artifact.ErrFilesystem, err)
	}

	entries, err := extractZip(ctx, archivePath, extractPath)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Download and extraction complete", "path", extractPath, "entries", entries)

	return extractPath, nil
}

// download streams the response body of archiveURL into archivePath.
// The status is checked before anything is written, a partial file is removed.
func (f *Fetcher) download(ctx context.Context, archiveURL, archivePath string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", artifact.ErrNetwork, err)
	}

	request.Header.Set("User-Agent", version.UserAgent())

	response, err := f.client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: get %s: %w", artifact.ErrNetwork, archiveURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s, %s: %w", artifact.ErrNetwork, archiveURL, response.Status, errBadHTTPStatus)
	}

	if err = os.MkdirAll(filepath.Dir(archivePath), defaultDirMode); err != nil {
		return fmt.Errorf("%w: create output directory: %w", artifact.ErrFilesystem, err)
	}

	out, err := os.Create(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("%w: create archive file: %w", artifact.ErrFilesystem, err)
	}

	tracker := &writeTracker{w: out}
	written, copyErr := io.Copy(tracker, response.Body)
	closeErr := out.Close()

	switch {
	case tracker.err != nil:
		_ = os.Remove(archivePath)
		return fmt.Errorf("%w: write archive file: %w", artifact.ErrFilesystem, tracker.err)
	case copyErr != nil:
		_ = os.Remove(archivePath)
		return fmt.Errorf("%w: read response body: %w", artifact.ErrNetwork, copyErr)
	case closeErr != nil:
		_ = os.Remove(archivePath)
		return fmt.Errorf("%w: write archive file: %w", artifact.ErrFilesystem, closeErr)
	}

	logger.DebugKV(ctx, "Downloaded archive", "path", archivePath, "bytes", written)

	return nil
}

// writeTracker remembers the first write error so copy failures can be
// attributed to the destination rather than the source.
type writeTracker struct {
	w   io.Writer
	err error
}

// Write forwards to the wrapped writer.
func (t *writeTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}

	return n, err
}
