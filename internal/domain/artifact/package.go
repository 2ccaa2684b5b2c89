package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Package describes a packaged tree on disk.
type Package struct {
	// Root is the absolute path of the packaged tree.
	Root string
	// EntryPoint is the path of the application executable inside Root.
	// It may not exist when Renamed is false.
	EntryPoint string
	// Renamed reports whether the runtime entry point was found and renamed.
	Renamed bool
}

// Rebase returns a copy of the package rooted at newRoot, keeping the entry
// point at the same relative location.
func (p *Package) Rebase(newRoot string) (*Package, error) {
	rel, err := filepath.Rel(p.Root, p.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: entry point outside package: %w", ErrFilesystem, err)
	}

	return &Package{
		Root:       newRoot,
		EntryPoint: filepath.Join(newRoot, rel),
		Renamed:    p.Renamed,
	}, nil
}

// EntryPointExists reports whether the entry point is present on disk,
// as a regular file or as an application bundle directory.
func (p *Package) EntryPointExists() bool {
	info, err := os.Stat(p.EntryPoint)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() || (info.IsDir() && IsBundle(p.EntryPoint))
}
