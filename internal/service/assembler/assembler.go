package assembler

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

// defaultDirMode is used for the package and resources directories.
const defaultDirMode os.FileMode = 0o755

// Assembler merges a runtime tree and an application project into one package.
type Assembler struct {
	// layout names the package and resources directories and the runtime entry point.
	layout artifact.Layout
	// appName is the new base name of the entry point.
	appName string
	// extension is appended to executable names, e.g. ".exe".
	extension string
}

// New creates an Assembler renaming the runtime entry point to appName+extension.
func New(layout artifact.Layout, appName, extension string) *Assembler {
	return &Assembler{
		layout:    layout,
		appName:   appName,
		extension: extension,
	}
}

// Assemble builds <outputDir>/<PackageDir> from scratch: the runtime tree at
// its root and the project tree under the resources directory. The runtime
// entry point is then renamed after the application.
//
// A missing entry point is not an error: the rename is skipped with a warning
// and the returned Package has Renamed set to false, its EntryPoint naming a
// file that does not exist.
func (a *Assembler) Assemble(ctx context.Context, runtimeTree, projectTree, outputDir string) (*artifact.Package, error) {
	root, err := filepath.Abs(filepath.Join(outputDir, a.layout.PackageDir))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve package path: %w", artifact.ErrFilesystem, err)
	}

	logger.InfoKV(ctx, "Assembling package", "path", root)

	// Stale content from a previous run is removed before any copying starts.
	if err = os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("%w: remove previous package: %w", artifact.ErrFilesystem, err)
	}

	if err = os.MkdirAll(root, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: create package directory: %w", artifact.ErrFilesystem, err)
	}

	if err = overlay.CopyTree(ctx, runtimeTree, root); err != nil {
		return nil, fmt.Errorf("copy runtime: %w", err)
	}

	resources := a.layout.ResourcesPath(root)
	if err = os.MkdirAll(resources, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: create resources directory: %w", artifact.ErrFilesystem, err)
	}

	if err = overlay.CopyTree(ctx, projectTree, resources); err != nil {
		return nil, fmt.Errorf("copy application: %w", err)
	}

	return a.renameEntryPoint(ctx, root)
}

// renameEntryPoint moves the runtime executable to the application name.
func (a *Assembler) renameEntryPoint(ctx context.Context, root string) (*artifact.Package, error) {
	source := filepath.Join(root, a.layout.EntryPoint+a.extension)
	target := filepath.Join(root, a.appName+a.extension)

	pkg := &artifact.Package{
		Root:       root,
		EntryPoint: target,
	}

	info, err := os.Stat(source)
	if errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Runtime entry point not found, skipping rename",
			"expected", source, "executable", target)

		return pkg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: stat entry point: %w", artifact.ErrFilesystem, err)
	}

	if !info.Mode().IsRegular() && !(info.IsDir() && artifact.IsBundle(source)) {
		logger.WarnKV(ctx, "Runtime entry point is not a regular file, skipping rename", "path", source)
		return pkg, nil
	}

	if source != target {
		if err = os.Rename(source, target); err != nil {
			return nil, fmt.Errorf("%w: rename entry point: %w", artifact.ErrFilesystem, err)
		}
	}

	pkg.Renamed = true

	logger.InfoKV(ctx, "Renamed entry point", "executable", filepath.Base(target))

	return pkg, nil
}
