package artifact

import "strings"

// Placeholders recognized in a download URL template.
const (
	VersionPlaceholder  = "{version}"
	PlatformPlaceholder = "{platform}"
	ArchPlaceholder     = "{arch}"
)

// DefaultURLTemplate points to the Electron release assets on GitHub.
const DefaultURLTemplate = "https://github.com/electron/electron/releases/download/" +
	"v" + VersionPlaceholder + "/electron-v" + VersionPlaceholder + "-" + PlatformPlaceholder + "-" + ArchPlaceholder + ".zip"

// ArchiveSource identifies a runtime build to download.
type ArchiveSource struct {
	// Version is the runtime release, e.g. "25.3.0" (without the "v" prefix).
	Version string
	// Platform is the runtime platform id, e.g. "win32", "linux", "darwin".
	Platform string
	// Arch is the runtime architecture id, e.g. "x64", "arm64".
	Arch string
}

// URL substitutes the source fields into template.
// An empty template falls back to DefaultURLTemplate.
func (s ArchiveSource) URL(template string) string {
	if template == "" {
		template = DefaultURLTemplate
	}

	replacer := strings.NewReplacer(
		VersionPlaceholder, strings.TrimPrefix(s.Version, "v"),
		PlatformPlaceholder, s.Platform,
		ArchPlaceholder, s.Arch,
	)

	return replacer.Replace(template)
}
