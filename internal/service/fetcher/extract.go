package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
)

var (
	// errUnsafePath is returned for entries that would land outside the target directory.
	errUnsafePath = errors.New("illegal file path in archive")
	// errUnsafeLink is returned for symlinks pointing outside the target directory.
	errUnsafeLink = errors.New("illegal symlink target in archive")
)

// extractZip unpacks every entry of archivePath into destDir and returns the entry count.
func extractZip(ctx context.Context, archivePath, destDir string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", artifact.ErrArchive, archivePath, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	if err = os.MkdirAll(destDir, defaultDirMode); err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", artifact.ErrFilesystem, destDir, err)
	}

	// Entries are checked against the real directory, links already on disk included.
	root, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return 0, fmt.Errorf("%w: resolve %s: %w", artifact.ErrFilesystem, destDir, err)
	}

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return 0, err
		}

		if err = extractEntry(file, root); err != nil {
			return 0, err
		}
	}

	return len(reader.File), nil
}

// extractEntry writes one archive entry below root.
func extractEntry(file *zip.File, root string) error {
	name := filepath.FromSlash(file.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s: %w", artifact.ErrArchive, file.Name, errUnsafePath)
	}

	target := filepath.Join(root, name)
	mode := file.Mode()

	if mode.IsDir() {
		if err := ensureInside(root, target); err != nil {
			return fmt.Errorf("%w: %s: %w", artifact.ErrArchive, file.Name, err)
		}

		if err := os.MkdirAll(target, defaultDirMode); err != nil {
			return fmt.Errorf("%w: create %s: %w", artifact.ErrFilesystem, target, err)
		}

		return nil
	}

	parent := filepath.Dir(target)

	// MkdirAll follows links, so the existing part of the parent is checked first.
	if err := ensureInside(root, parent); err != nil {
		return fmt.Errorf("%w: %s: %w", artifact.ErrArchive, file.Name, err)
	}

	if err := os.MkdirAll(parent, defaultDirMode); err != nil {
		return fmt.Errorf("%w: create parent of %s: %w", artifact.ErrFilesystem, target, err)
	}

	// A later entry replaces a link instead of writing through it.
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err = os.Remove(target); err != nil {
			return fmt.Errorf("%w: replace link %s: %w", artifact.ErrFilesystem, target, err)
		}
	}

	if mode&fs.ModeSymlink != 0 {
		return extractSymlink(file, root, target)
	}

	return extractFile(file, target)
}

// ensureInside resolves the longest existing prefix of path, following links,
// and requires the result to stay below root.
func ensureInside(root, path string) error {
	existing := path

	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}

		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnsafePath, err)
	}

	if !isLocalTo(root, resolved) {
		return fmt.Errorf("%w: %s resolves to %s", errUnsafePath, path, resolved)
	}

	return nil
}

// isLocalTo reports whether path is root or lies below it.
func isLocalTo(root, path string) bool {
	rel, err := filepath.Rel(root, path)

	return err == nil && filepath.IsLocal(rel)
}

// extractFile copies a regular entry to target.
func extractFile(file *zip.File, target string) error {
	source, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", artifact.ErrArchive, file.Name, err)
	}

	defer func() {
		_ = source.Close()
	}()

	perm := file.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", artifact.ErrFilesystem, target, err)
	}

	tracker := &writeTracker{w: out}
	_, copyErr := io.Copy(tracker, source)
	closeErr := out.Close()

	switch {
	case tracker.err != nil:
		return fmt.Errorf("%w: write %s: %w", artifact.ErrFilesystem, target, tracker.err)
	case copyErr != nil:
		return fmt.Errorf("%w: read entry %s: %w", artifact.ErrArchive, file.Name, copyErr)
	case closeErr != nil:
		return fmt.Errorf("%w: close %s: %w", artifact.ErrFilesystem, target, closeErr)
	}

	return nil
}

// extractSymlink recreates a symlink entry whose target must stay inside root.
// The target is resolved from the real parent directory, so chains of links
// cannot climb out through a parent that is itself a link.
func extractSymlink(file *zip.File, root, target string) error {
	source, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", artifact.ErrArchive, file.Name, err)
	}

	defer func() {
		_ = source.Close()
	}()

	contents, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("%w: read entry %s: %w", artifact.ErrArchive, file.Name, err)
	}

	link := string(contents)

	realParent, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err != nil {
		return fmt.Errorf("%w: resolve parent of %s: %w", artifact.ErrFilesystem, target, err)
	}

	if filepath.IsAbs(link) || !isLocalTo(root, filepath.Join(realParent, filepath.FromSlash(link))) {
		return fmt.Errorf("%w: %s -> %s: %w", artifact.ErrArchive, file.Name, link, errUnsafeLink)
	}

	if err = os.Symlink(link, target); err != nil {
		return fmt.Errorf("%w: symlink %s: %w", artifact.ErrFilesystem, target, err)
	}

	// The link may still pass through other links; whatever it reaches must be inside.
	if resolved, evalErr := filepath.EvalSymlinks(target); evalErr == nil && !isLocalTo(root, resolved) {
		_ = os.Remove(target)

		return fmt.Errorf("%w: %s -> %s: %w", artifact.ErrArchive, file.Name, link, errUnsafeLink)
	}

	return nil
}
