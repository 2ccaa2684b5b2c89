package packager

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/electron-packager/internal/config"
	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/logger"
	"github.com/oshokin/electron-packager/internal/service/assembler"
	"github.com/oshokin/electron-packager/internal/service/fetcher"
	"github.com/oshokin/electron-packager/internal/service/launcher"
	"github.com/oshokin/electron-packager/internal/service/relocator"
	"github.com/oshokin/electron-packager/internal/service/shortcut"
)

// Options contains inputs for the packager entry point.
// Empty strings and zero durations keep the value from the settings file.
type Options struct {
	// ConfigPath is the YAML settings file (defaults to electron-packager.yaml).
	ConfigPath string
	// SaveConfig persists the resolved settings to ConfigPath.
	SaveConfig bool

	// ProjectPath is the application project directory.
	ProjectPath string
	// RuntimeVersion is the Electron release to download.
	RuntimeVersion string
	// Platform is the runtime platform id.
	Platform string
	// Arch is the runtime architecture id.
	Arch string
	// AppName names the application executable.
	AppName string
	// OutputPath is the build directory.
	OutputPath string
	// WorkPath is the installation directory.
	WorkPath string
	// URLTemplate is the archive download URL template.
	URLTemplate string
	// ExecutableExtension overrides the extension derived from the platform.
	ExecutableExtension string
	// ShortcutDir overrides the desktop directory.
	ShortcutDir string
	// DownloadTimeout bounds the archive download.
	DownloadTimeout time.Duration
	// LogLevel is the minimum log level.
	LogLevel string
	// LogFile is an optional rotating log file.
	LogFile string

	// KeepArchive retains the downloaded archive.
	KeepArchive bool
	// SkipShortcut disables the desktop shortcut.
	SkipShortcut bool
	// SkipLaunch disables launching the application.
	SkipLaunch bool
	// SkipStopRunning leaves running instances of the application alone.
	SkipStopRunning bool

	// HTTPClient replaces the download client; DownloadTimeout is ignored when set.
	HTTPClient *http.Client
}

// Result describes what a run produced.
type Result struct {
	// Package is the relocated package in the work directory.
	Package *artifact.Package
	// Shortcut is the shortcut path, empty when none was written.
	Shortcut string
}

// packager executes the pipeline for validated settings.
type packager struct {
	// cfg holds the resolved settings.
	cfg *config.Config
	// layout names the files and directories of the pipeline.
	layout artifact.Layout
	// client downloads the runtime archive.
	client *http.Client
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	cfg, err := resolveConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Name the logger once settings have installed the configured sinks.
	ctx = logger.WithName(ctx, "electron-packager")

	release, err := acquireMarker(ctx, cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	defer release()

	result, err := newPackager(cfg, opts.HTTPClient).Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Packaging failed", "error", err)

		return nil, fmt.Errorf("packager failed: %w", err)
	}

	return result, nil
}

// resolveConfig merges the settings file with the overrides, validates the
// result once and optionally saves it.
func resolveConfig(ctx context.Context, opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	opts.apply(cfg)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger.Setup(cfg.LogLevel, cfg.LogFile)

	if opts.SaveConfig {
		if err = config.Save(opts.ConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}

		logger.InfoKV(ctx, "Settings saved", "path", opts.configPath())
	}

	return cfg, nil
}

// apply copies every non-empty override into cfg.
func (o *Options) apply(cfg *config.Config) {
	overrides := []struct {
		value  string
		target *string
	}{
		{o.ProjectPath, &cfg.ProjectPath},
		{o.RuntimeVersion, &cfg.RuntimeVersion},
		{o.Platform, &cfg.Platform},
		{o.Arch, &cfg.Arch},
		{o.AppName, &cfg.AppName},
		{o.OutputPath, &cfg.OutputPath},
		{o.WorkPath, &cfg.WorkPath},
		{o.URLTemplate, &cfg.URLTemplate},
		{o.ExecutableExtension, &cfg.ExecutableExtension},
		{o.ShortcutDir, &cfg.ShortcutDir},
		{o.LogLevel, &cfg.LogLevel},
		{o.LogFile, &cfg.LogFile},
	}

	for _, override := range overrides {
		if override.value != "" {
			*override.target = override.value
		}
	}

	// A new platform implies a new extension unless one is given explicitly.
	if o.Platform != "" && o.ExecutableExtension == "" {
		cfg.ExecutableExtension = ""
	}

	if o.DownloadTimeout > 0 {
		cfg.DownloadTimeout = o.DownloadTimeout
	}

	cfg.KeepArchive = cfg.KeepArchive || o.KeepArchive
	cfg.CreateShortcut = cfg.CreateShortcut && !o.SkipShortcut
	cfg.Launch = cfg.Launch && !o.SkipLaunch
	cfg.StopRunning = cfg.StopRunning && !o.SkipStopRunning
}

// configPath returns the settings file path actually used.
func (o *Options) configPath() string {
	if o.ConfigPath == "" {
		return config.DefaultConfigFilename
	}

	return o.ConfigPath
}

// newPackager creates a packager for validated settings.
func newPackager(cfg *config.Config, client *http.Client) *packager {
	if client == nil {
		client = &http.Client{Timeout: cfg.DownloadTimeout}
	}

	return &packager{
		cfg:    cfg,
		layout: artifact.DefaultLayout().ForPlatform(cfg.Platform),
		client: client,
	}
}

// Run performs every stage in order and stops at the first failure.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	logger.InfoKV(ctx, "Packaging application",
		"app_name", p.cfg.AppName,
		"runtime_version", p.cfg.RuntimeVersion,
		"platform", p.cfg.Platform,
		"arch", p.cfg.Arch,
	)

	runtimeTree, err := fetcher.New(
		fetcher.WithHTTPClient(p.client),
		fetcher.WithURLTemplate(p.cfg.URLTemplate),
		fetcher.WithLayout(p.layout),
		fetcher.WithKeepArchive(p.cfg.KeepArchive),
	).Fetch(ctx, p.cfg.Source(), p.cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	pkg, err := assembler.New(p.layout, p.cfg.AppName, p.cfg.Extension()).
		Assemble(ctx, runtimeTree, p.cfg.ProjectPath, p.cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	if p.cfg.StopRunning {
		p.stopRunning(ctx)
	}

	installed, err := relocator.Relocate(ctx, pkg, p.cfg.WorkPath)
	if err != nil {
		return nil, err
	}

	result := &Result{Package: installed}

	if p.cfg.CreateShortcut {
		result.Shortcut, err = shortcut.New(p.cfg.ShortcutDir, p.cfg.Platform).
			Create(ctx, p.cfg.AppName, installed.EntryPoint)
		if err != nil {
			return nil, err
		}
	}

	p.printSummary(ctx, result)

	if p.cfg.Launch {
		if err = launcher.Run(ctx, installed.EntryPoint); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// stopRunning terminates running copies of the application so relocation can replace them.
// Failures are only logged: relocation reports a real conflict if the old install is still in use.
func (p *packager) stopRunning(ctx context.Context) {
	if artifact.IsBundlePlatform(p.cfg.Platform) {
		// The inner executable of a bundle keeps the runtime name, and a running bundle can be replaced.
		logger.DebugKV(ctx, "Not stopping running instances of an application bundle", "platform", p.cfg.Platform)
		return
	}

	if _, err := launcher.StopRunning(ctx, p.cfg.ExecutableName()); err != nil {
		logger.WarnKV(ctx, "Unable to stop running instances", "error", err)
	}
}

// printSummary logs where the package, the executable and the shortcut ended up.
func (p *packager) printSummary(ctx context.Context, result *Result) {
	var builder strings.Builder

	builder.WriteString("Application packaged to ")
	builder.WriteString(result.Package.Root)
	builder.WriteString("\nExecutable: ")
	builder.WriteString(result.Package.EntryPoint)

	if !result.Package.Renamed {
		builder.WriteString(" (runtime entry point was not found, rename skipped)")
	}

	if result.Shortcut != "" {
		builder.WriteString("\nShortcut: ")
		builder.WriteString(result.Shortcut)
	}

	if p.cfg.KeepArchive {
		builder.WriteString("\nArchive kept at ")
		builder.WriteString(filepath.Join(p.cfg.OutputPath, p.layout.ArchiveName))
	}

	logger.Info(ctx, builder.String())
}
