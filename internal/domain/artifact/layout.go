package artifact

import (
	"path/filepath"
	"strings"
)

const (
	// PlatformWindows is the runtime platform id for Windows builds.
	PlatformWindows = "win32"
	// PlatformLinux is the runtime platform id for Linux builds.
	PlatformLinux = "linux"
	// PlatformDarwin is the runtime platform id for macOS builds.
	PlatformDarwin = "darwin"
	// PlatformMAS is the runtime platform id for Mac App Store builds.
	PlatformMAS = "mas"

	// BundleExtension marks macOS application bundles, which are directories.
	BundleExtension = ".app"
)

// Layout holds the fixed names used on disk by the pipeline.
type Layout struct {
	// ArchiveName is the file the runtime archive is downloaded to.
	ArchiveName string
	// ExtractDir is the directory the runtime archive is extracted into.
	ExtractDir string
	// PackageDir is the directory holding the assembled package.
	PackageDir string
	// ResourcesDir is the slash-separated path, relative to PackageDir,
	// that receives the application project files.
	ResourcesDir string
	// EntryPoint is the runtime's default executable name without extension.
	EntryPoint string
	// BundleEntryPoint replaces EntryPoint for macOS runtimes, which ship Electron.app.
	BundleEntryPoint string
}

// DefaultLayout returns the names used for Electron runtimes.
func DefaultLayout() Layout {
	return Layout{
		ArchiveName:  "electron.zip",
		ExtractDir:   "electron",
		PackageDir:   "packagedApp",
		ResourcesDir: "resources/app",
		EntryPoint:   "electron",

		BundleEntryPoint: "Electron",
	}
}

// ForPlatform returns the layout used by platform runtimes. macOS runtimes keep
// the application inside the bundle, which is renamed together with it.
func (l Layout) ForPlatform(platform string) Layout {
	if IsBundlePlatform(platform) && l.BundleEntryPoint != "" {
		l.EntryPoint = l.BundleEntryPoint
		l.ResourcesDir = l.BundleEntryPoint + BundleExtension + "/Contents/Resources/app"
	}

	return l
}

// ResourcesPath returns the application resources directory inside packageRoot.
func (l Layout) ResourcesPath(packageRoot string) string {
	return filepath.Join(packageRoot, filepath.FromSlash(l.ResourcesDir))
}

// ExecutableExtension returns ".exe" for Windows runtimes, ".app" for macOS
// bundles and "" elsewhere.
func ExecutableExtension(platform string) string {
	switch {
	case platform == PlatformWindows:
		return ".exe"
	case IsBundlePlatform(platform):
		return BundleExtension
	default:
		return ""
	}
}

// IsBundlePlatform reports whether platform runtimes ship an application bundle.
func IsBundlePlatform(platform string) bool {
	return platform == PlatformDarwin || platform == PlatformMAS
}

// IsBundle reports whether path names a macOS application bundle.
func IsBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), BundleExtension)
}
