package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
	"github.com/oshokin/electron-packager/internal/service/overlay"
)

// Config holds every parameter of a packaging run.
type Config struct {
	// RuntimeVersion is the Electron release to download, e.g. "25.3.0".
	RuntimeVersion string `yaml:"runtime_version"`
	// Platform is the runtime platform id (win32, linux, darwin, mas).
	Platform string `yaml:"platform"`
	// Arch is the runtime architecture id (x64, ia32, arm64, armv7l).
	Arch string `yaml:"arch"`
	// AppName becomes the file name of the application executable.
	AppName string `yaml:"app_name"`
	// ProjectPath is the application project copied into resources/app.
	ProjectPath string `yaml:"project_path"`
	// OutputPath receives the archive, the extracted runtime and the package.
	OutputPath string `yaml:"output_path"`
	// WorkPath is the installation directory the package is relocated to.
	WorkPath string `yaml:"work_path"`
	// URLTemplate is the download URL with {version}, {platform} and {arch} placeholders.
	URLTemplate string `yaml:"url_template"`
	// ExecutableExtension is appended to executable names; derived from Platform when empty.
	ExecutableExtension string `yaml:"executable_extension,omitempty"`
	// KeepArchive retains the downloaded archive in OutputPath.
	KeepArchive bool `yaml:"keep_archive"`
	// CreateShortcut writes a desktop shortcut to the final executable.
	CreateShortcut bool `yaml:"create_shortcut"`
	// ShortcutDir overrides the desktop directory used for the shortcut.
	ShortcutDir string `yaml:"shortcut_dir,omitempty"`
	// Launch starts the final executable and waits for it to exit.
	Launch bool `yaml:"launch"`
	// StopRunning terminates running instances of the app before relocation.
	StopRunning bool `yaml:"stop_running"`
	// DownloadTimeout bounds the archive download; zero means no deadline.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// LogLevel is the minimum level of console and file logs.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFile is an optional rotating log file.
	LogFile string `yaml:"log_file,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "electron-packager.yaml"

	// DefaultRuntimeVersion is the Electron release used when none is configured.
	DefaultRuntimeVersion = "25.3.0"

	// DefaultAppName names the application executable when none is configured.
	DefaultAppName = "app"

	// DefaultOutputPath is the build directory relative to the working directory.
	DefaultOutputPath = "out"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRuntimeVersionRequired is returned when the runtime version is missing.
	errRuntimeVersionRequired = errors.New("runtime version must be provided")
	// errUnsupportedPlatform is returned for unknown platform ids.
	errUnsupportedPlatform = errors.New("unsupported platform")
	// errUnsupportedArch is returned for unknown architecture ids.
	errUnsupportedArch = errors.New("unsupported architecture")
	// errInvalidAppName is returned when the app name cannot be used as a file name.
	errInvalidAppName = errors.New("invalid app name")
	// errProjectPathRequired is returned when the project path is missing.
	errProjectPathRequired = errors.New("project path must be provided")
	// errProjectNotDirectory is returned when the project path is not a directory.
	errProjectNotDirectory = errors.New("project path is not a directory")
	// errOutputPathRequired is returned when the output path is missing.
	errOutputPathRequired = errors.New("output path must be provided")
	// errWorkPathRequired is returned when the work path is missing.
	errWorkPathRequired = errors.New("work path must be provided")
	// errWorkPathIsOutput is returned when the package would be relocated onto itself.
	errWorkPathIsOutput = errors.New("work path must differ from output path")
	// errOutputInsideProject is returned when the build directory would be copied into the package.
	errOutputInsideProject = errors.New("output path must not be inside the project path")
	// errWorkInsideProject is returned when the installation would be copied into the next package.
	errWorkInsideProject = errors.New("work path must not be inside the project path")
	// errInvalidURLTemplate is returned when the download URL cannot be built.
	errInvalidURLTemplate = errors.New("invalid url template")
	// errInvalidExtension is returned for an executable extension without a leading dot.
	errInvalidExtension = errors.New("executable extension must start with a dot")
	// errNegativeTimeout is returned for a negative download timeout.
	errNegativeTimeout = errors.New("download timeout must not be negative")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
)

//nolint:gochecknoglobals // Fixed sets of runtime ids.
var (
	supportedPlatforms = []string{
		artifact.PlatformWindows,
		artifact.PlatformLinux,
		artifact.PlatformDarwin,
		artifact.PlatformMAS,
	}
	supportedArchs = []string{"x64", "ia32", "arm64", "armv7l"}
)

// Default returns settings matching the host platform with every optional step enabled.
func Default() *Config {
	return &Config{
		RuntimeVersion: DefaultRuntimeVersion,
		Platform:       HostPlatform(),
		Arch:           HostArch(),
		AppName:        DefaultAppName,
		OutputPath:     DefaultOutputPath,
		WorkPath:       filepath.Join(os.TempDir(), "electron"),
		URLTemplate:    artifact.DefaultURLTemplate,
		CreateShortcut: true,
		Launch:         true,
		StopRunning:    true,
	}
}

// HostPlatform maps runtime.GOOS to the runtime platform id.
func HostPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return artifact.PlatformWindows
	case "darwin":
		return artifact.PlatformDarwin
	default:
		return artifact.PlatformLinux
	}
}

// HostArch maps runtime.GOARCH to the runtime architecture id.
func HostArch() string {
	switch runtime.GOARCH {
	case "386":
		return "ia32"
	case "arm64":
		return "arm64"
	case "arm":
		return "armv7l"
	default:
		return "x64"
	}
}

// Read loads settings from path on top of Default without validating them.
// A missing file yields the defaults.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return cfg, nil
}

// Load reads settings from path and validates them.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks every field and reports all problems at once.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	var result *multierror.Error

	if settings.RuntimeVersion == "" {
		result = multierror.Append(result, errRuntimeVersionRequired)
	} else if _, err := goversion.NewVersion(settings.RuntimeVersion); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid runtime version %q: %w", settings.RuntimeVersion, err))
	}

	if !slices.Contains(supportedPlatforms, settings.Platform) {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnsupportedPlatform, settings.Platform))
	}

	if !slices.Contains(supportedArchs, settings.Arch) {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnsupportedArch, settings.Arch))
	}

	if err := validateAppName(settings.AppName); err != nil {
		result = multierror.Append(result, err)
	}

	if err := validateProjectPath(settings.ProjectPath); err != nil {
		result = multierror.Append(result, err)
	}

	if err := validateDirectories(settings.ProjectPath, settings.OutputPath, settings.WorkPath); err != nil {
		result = multierror.Append(result, err)
	}

	if err := validateURLTemplate(settings); err != nil {
		result = multierror.Append(result, err)
	}

	if settings.ExecutableExtension != "" && !strings.HasPrefix(settings.ExecutableExtension, ".") {
		result = multierror.Append(result, fmt.Errorf("%w: %q", errInvalidExtension, settings.ExecutableExtension))
	}

	if settings.DownloadTimeout < 0 {
		result = multierror.Append(result, errNegativeTimeout)
	}

	if settings.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel))
		}
	}

	return result.ErrorOrNil()
}

// Source returns the archive to download for these settings.
func (c *Config) Source() artifact.ArchiveSource {
	return artifact.ArchiveSource{
		Version:  c.RuntimeVersion,
		Platform: c.Platform,
		Arch:     c.Arch,
	}
}

// Extension returns the configured executable extension or the platform default.
// The derived value is never stored, so saved settings follow later platform edits.
func (c *Config) Extension() string {
	if c.ExecutableExtension != "" {
		return c.ExecutableExtension
	}

	return artifact.ExecutableExtension(c.Platform)
}

// ExecutableName returns the application executable file name.
func (c *Config) ExecutableName() string {
	return c.AppName + c.Extension()
}

// validateAppName rejects names that are not plain file names.
func validateAppName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", errInvalidAppName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", errInvalidAppName, name)
	case strings.ContainsAny(name, `/\:*?"<>|`):
		return fmt.Errorf("%w: %q contains reserved characters", errInvalidAppName, name)
	}

	return nil
}

// validateProjectPath requires an existing directory.
func validateProjectPath(path string) error {
	if path == "" {
		return errProjectPathRequired
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("project path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", errProjectNotDirectory, path)
	}

	return nil
}

// validateDirectories requires both directories, keeps them apart and
// keeps them out of the project tree copied into the package.
func validateDirectories(projectPath, outputPath, workPath string) error {
	var result *multierror.Error

	if outputPath == "" {
		result = multierror.Append(result, errOutputPathRequired)
	}

	if workPath == "" {
		result = multierror.Append(result, errWorkPathRequired)
	}

	if outputPath != "" && workPath != "" {
		output, outputErr := filepath.Abs(outputPath)
		work, workErr := filepath.Abs(workPath)

		if outputErr == nil && workErr == nil && output == work {
			result = multierror.Append(result, errWorkPathIsOutput)
		}
	}

	if projectPath != "" {
		if inside, err := overlay.IsWithin(projectPath, outputPath); outputPath != "" && err == nil && inside {
			result = multierror.Append(result, fmt.Errorf("%w: %s", errOutputInsideProject, outputPath))
		}

		if inside, err := overlay.IsWithin(projectPath, workPath); workPath != "" && err == nil && inside {
			result = multierror.Append(result, fmt.Errorf("%w: %s", errWorkInsideProject, workPath))
		}
	}

	return result.ErrorOrNil()
}

// validateURLTemplate renders the template and checks the result is an HTTP(S) URL.
func validateURLTemplate(settings *Config) error {
	if settings.URLTemplate == "" {
		settings.URLTemplate = artifact.DefaultURLTemplate
	}

	rendered := settings.Source().URL(settings.URLTemplate)

	parsed, err := url.ParseRequestURI(rendered)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidURLTemplate, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", errInvalidURLTemplate, parsed.Scheme)
	}

	return nil
}
