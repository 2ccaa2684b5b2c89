package relocator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
	"github.com/oshokin/electron-packager/internal/service/overlay"
)

// defaultDirMode is used when creating the target directory.
const defaultDirMode os.FileMode = 0o755

var (
	// errPackageNotSet is returned when no package is provided.
	errPackageNotSet = errors.New("package is not set")
	// errOverlappingTarget is returned when source and destination share a subtree.
	errOverlappingTarget = errors.New("relocation target overlaps the package")
)

// Relocate copies pkg into <targetDir>/<base of pkg.Root>, replacing a prior
// installation, and returns the relocated package. The entry point keeps the
// location the assembler produced relative to the package root.
func Relocate(ctx context.Context, pkg *artifact.Package, targetDir string) (*artifact.Package, error) {
	if pkg == nil {
		return nil, errPackageNotSet
	}

	target, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve target: %w", artifact.ErrFilesystem, err)
	}

	destination := filepath.Join(target, filepath.Base(pkg.Root))

	if err = ensureDisjoint(pkg.Root, destination); err != nil {
		return nil, err
	}

	relocated, err := pkg.Rebase(destination)
	if err != nil {
		return nil, err
	}

	if _, err = os.Lstat(destination); err == nil {
		logger.InfoKV(ctx, "Removing previous installation", "path", destination)

		if err = os.RemoveAll(destination); err != nil {
			return nil, fmt.Errorf("%w: remove previous installation: %w", artifact.ErrFilesystem, err)
		}
	}

	if err = os.MkdirAll(target, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: create target directory: %w", artifact.ErrFilesystem, err)
	}

	if err = overlay.CopyTree(ctx, pkg.Root, destination); err != nil {
		return nil, fmt.Errorf("copy package: %w", err)
	}

	logger.InfoKV(ctx, "Moved package", "path", destination)

	return relocated, nil
}

// ensureDisjoint refuses destinations that contain or sit inside the source.
func ensureDisjoint(source, destination string) error {
	for _, pair := range [][2]string{{source, destination}, {destination, source}} {
		inside, err := overlay.IsWithin(pair[0], pair[1])
		if err != nil {
			return fmt.Errorf("%w: %w", artifact.ErrFilesystem, err)
		}

		if inside {
			return fmt.Errorf("%w: %s and %s: %w", artifact.ErrFilesystem, source, destination, errOverlappingTarget)
		}
	}

	return nil
}
