package shortcut

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
)

const (
	// internetShortcutMode is the permission of .url files.
	internetShortcutMode os.FileMode = 0o644
	// desktopEntryMode marks .desktop files as trusted launchers.
	desktopEntryMode os.FileMode = 0o755
	// defaultDirMode is used when the shortcut directory is missing.
	defaultDirMode os.FileMode = 0o755
)

// errNoDesktopDir is returned when no shortcut directory can be determined.
var errNoDesktopDir = errors.New("desktop directory is unknown")

// Creator writes shortcuts for one runtime platform.
type Creator struct {
	// dir receives the shortcut files.
	dir string
	// platform selects the shortcut format.
	platform string
}

// New creates a Creator writing into dir, or into the user desktop when dir is empty.
func New(dir, platform string) *Creator {
	if dir == "" {
		dir = xdg.UserDirs.Desktop
	}

	return &Creator{
		dir:      dir,
		platform: platform,
	}
}

// Create writes a shortcut named after appName that opens executable and
// returns the shortcut path.
func (c *Creator) Create(ctx context.Context, appName, executable string) (string, error) {
	if c.dir == "" {
		return "", fmt.Errorf("%w: %w", artifact.ErrFilesystem, errNoDesktopDir)
	}

	var (
		name     string
		contents string
		mode     os.FileMode
	)

	switch c.platform {
	case artifact.PlatformLinux:
		name, contents, mode = appName+".desktop", DesktopEntry(appName, executable), desktopEntryMode
	default:
		name, contents, mode = appName+".url", InternetShortcut(executable), internetShortcutMode
	}

	if err := os.MkdirAll(c.dir, defaultDirMode); err != nil {
		return "", fmt.Errorf("%w: create shortcut directory: %w", artifact.ErrFilesystem, err)
	}

	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, []byte(contents), mode); err != nil {
		return "", fmt.Errorf("%w: write shortcut: %w", artifact.ErrFilesystem, err)
	}

	logger.InfoKV(ctx, "Shortcut created", "path", path)

	return path, nil
}

// InternetShortcut renders an [InternetShortcut] file opening executable.
func InternetShortcut(executable string) string {
	slashed := filepath.ToSlash(executable)

	lines := []string{
		"[InternetShortcut]",
		"URL=file:///" + strings.TrimPrefix(slashed, "/"),
		"IconIndex=0",
		"IconFile=" + slashed,
	}

	return strings.Join(lines, "\r\n") + "\r\n"
}

// DesktopEntry renders a freedesktop application entry launching executable.
func DesktopEntry(appName, executable string) string {
	lines := []string{
		"[Desktop Entry]",
		"Type=Application",
		"Name=" + appName,
		"Exec=" + quoteExec(executable),
		"Icon=" + executable,
		"Terminal=false",
	}

	return strings.Join(lines, "\n") + "\n"
}

// quoteExec quotes a path for the Exec key of a desktop entry.
func quoteExec(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", "$", `\$`)

	return `"` + replacer.Replace(path) + `"`
}
