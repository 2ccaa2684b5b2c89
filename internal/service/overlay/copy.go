package overlay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
)

// defaultDirMode is used for destination directories whose source mode is unusable.
const defaultDirMode os.FileMode = 0o755

var (
	// errSourceNotDirectory is returned when the copy source is not a directory.
	errSourceNotDirectory = errors.New("source is not a directory")
	// errUnsupportedEntry is returned for devices, sockets and pipes.
	errUnsupportedEntry = errors.New("unsupported file type")
	// errDestInsideSource is returned when the walk would copy into itself.
	errDestInsideSource = errors.New("destination is inside source")
)

// CopyTree overlays source onto dest.
//
// Directories are created with the source permission bits, regular files are
// truncated and rewritten, symlinks are recreated. Entries present only in
// dest are left untouched. On failure the destination may be incomplete.
func CopyTree(ctx context.Context, source, dest string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: stat source: %w", artifact.ErrFilesystem, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s: %w", artifact.ErrFilesystem, source, errSourceNotDirectory)
	}

	if inside, err := IsWithin(source, dest); err != nil {
		return fmt.Errorf("%w: %w", artifact.ErrFilesystem, err)
	} else if inside {
		return fmt.Errorf("%w: %s: %w", artifact.ErrFilesystem, dest, errDestInsideSource)
	}

	var copied int

	err = filepath.WalkDir(source, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dest, rel)

		switch {
		case entry.IsDir():
			return copyDir(entry, target)
		case entry.Type()&fs.ModeSymlink != 0:
			copied++
			return copySymlink(path, target)
		case entry.Type().IsRegular():
			copied++
			return copyFile(path, target)
		default:
			return fmt.Errorf("%s: %w", path, errUnsupportedEntry)
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}

		return fmt.Errorf("%w: copy %s to %s: %w", artifact.ErrFilesystem, source, dest, err)
	}

	logger.DebugKV(ctx, "Copied tree", "source", source, "dest", dest, "files", copied)

	return nil
}

// copyDir creates target with the permission bits of the source directory.
func copyDir(entry fs.DirEntry, target string) error {
	mode := defaultDirMode

	if info, err := entry.Info(); err == nil && info.Mode().Perm()&0o700 == 0o700 {
		mode = info.Mode().Perm()
	}

	return os.MkdirAll(target, mode)
}

// copyFile writes the contents and permission bits of path over target.
func copyFile(path, target string) error {
	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// Writing through a symlink would modify the file it points to.
	if existing, err := os.Lstat(target); err == nil && existing.Mode()&fs.ModeSymlink != 0 {
		if err = os.Remove(target); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	if err = out.Close(); err != nil {
		return err
	}

	// OpenFile keeps the old mode of an existing file.
	return os.Chmod(target, info.Mode().Perm())
}

// copySymlink recreates the link at path as target, replacing what is there.
func copySymlink(path, target string) error {
	link, err := os.Readlink(path)
	if err != nil {
		return err
	}

	// os.Remove refuses non-empty directories, so only files and links are replaced.
	if _, err = os.Lstat(target); err == nil {
		if err = os.Remove(target); err != nil {
			return err
		}
	}

	return os.Symlink(link, target)
}

// IsWithin reports whether path equals root or lies below it.
func IsWithin(root, path string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}
