package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestArchiveSourceURL verifies placeholder substitution and the default template.
func TestArchiveSourceURL(t *testing.T) {
	t.Parallel()

	src := ArchiveSource{
		Version:  "25.3.0",
		Platform: PlatformWindows,
		Arch:     "x64",
	}

	require.Equal(t,
		"https://github.com/electron/electron/releases/download/v25.3.0/electron-v25.3.0-win32-x64.zip",
		src.URL(""),
	)

	// A leading "v" in the version is not duplicated.
	src = ArchiveSource{
		Version:  "v25.3.0",
		Platform: PlatformLinux,
		Arch:     "arm64",
	}

	require.Equal(t,
		"http://127.0.0.1:8080/25.3.0/linux-arm64.zip",
		src.URL("http://127.0.0.1:8080/{version}/{platform}-{arch}.zip"),
	)
}

// TestExecutableExtension checks the per-platform executable suffix.
func TestExecutableExtension(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".exe", ExecutableExtension(PlatformWindows))
	require.Empty(t, ExecutableExtension(PlatformLinux))
	require.Equal(t, ".app", ExecutableExtension(PlatformDarwin))
	require.Equal(t, ".app", ExecutableExtension(PlatformMAS))
}

// TestLayoutForPlatform picks the bundle entry point for macOS runtimes only.
func TestLayoutForPlatform(t *testing.T) {
	t.Parallel()

	layout := DefaultLayout()

	require.Equal(t, "electron", layout.ForPlatform(PlatformWindows).EntryPoint)
	require.Equal(t, "electron", layout.ForPlatform(PlatformLinux).EntryPoint)
	require.Equal(t, "Electron", layout.ForPlatform(PlatformDarwin).EntryPoint)
	require.Equal(t, "Electron", layout.ForPlatform(PlatformMAS).EntryPoint)
	require.Equal(t, "electron", layout.EntryPoint)
	require.Equal(t, "Electron.app/Contents/Resources/app", layout.ForPlatform(PlatformDarwin).ResourcesDir)
	require.Equal(t, "resources/app", layout.ForPlatform(PlatformLinux).ResourcesDir)

	require.True(t, IsBundle(filepath.Join("out", "demo.app")))
	require.False(t, IsBundle(filepath.Join("out", "demo.exe")))
}

// TestLayoutResourcesPath ensures the resources directory is joined with OS separators.
func TestLayoutResourcesPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join("out", "packagedApp")
	require.Equal(t, filepath.Join(root, "resources", "app"), DefaultLayout().ResourcesPath(root))
}

// TestPackageRebase verifies the entry point keeps its relative location.
func TestPackageRebase(t *testing.T) {
	t.Parallel()

	from := filepath.Join("build", "packagedApp")
	to := filepath.Join("install", "packagedApp")

	pkg := &Package{
		Root:       from,
		EntryPoint: filepath.Join(from, "demo.exe"),
		Renamed:    true,
	}

	moved, err := pkg.Rebase(to)
	require.NoError(t, err)
	require.Equal(t, to, moved.Root)
	require.Equal(t, filepath.Join(to, "demo.exe"), moved.EntryPoint)
	require.True(t, moved.Renamed)
}

// TestPackageEntryPointExists checks detection of a present and a missing entry point.
func TestPackageEntryPointExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pkg := &Package{
		Root:       dir,
		EntryPoint: filepath.Join(dir, "demo"),
	}

	require.False(t, pkg.EntryPointExists())

	require.NoError(t, os.WriteFile(pkg.EntryPoint, []byte("bin"), 0o755))
	require.True(t, pkg.EntryPointExists())
}
