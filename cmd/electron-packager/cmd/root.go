package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/electron-packager/internal/config"
	"github.com/oshokin/electron-packager/internal/service/packager"
	"github.com/oshokin/electron-packager/internal/version"
)

var (
	// options collects flag values for the packager.
	options = &packager.Options{}

	// rootCmd represents the base command for packaging an application.
	rootCmd = &cobra.Command{
		Use:   "electron-packager [project-path]",
		Short: "Package an application with a downloaded Electron runtime",
		Long: "Downloads the Electron runtime, copies the project into resources/app, " +
			"renames the executable after the application and installs the result into the work directory.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if len(args) > 0 {
				options.ProjectPath = args[0]
			}

			_, err := packager.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the electron-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.BoolVar(&options.SaveConfig, "save-config", false, "save the resolved settings to the configuration file")

	flags.StringVar(&options.RuntimeVersion, "runtime-version", "", "Electron release to download, e.g. 25.3.0")
	flags.StringVar(&options.Platform, "platform", "", "runtime platform: win32, linux, darwin or mas")
	flags.StringVar(&options.Arch, "arch", "", "runtime architecture: x64, ia32, arm64 or armv7l")
	flags.StringVar(&options.AppName, "app-name", "", "application name used for the executable")
	flags.StringVar(&options.OutputPath, "output", "", "build directory for the archive and the assembled package")
	flags.StringVar(&options.WorkPath, "work-dir", "", "installation directory for the packaged application")
	flags.StringVar(&options.URLTemplate, "url-template", "",
		"download URL with {version}, {platform} and {arch} placeholders")
	flags.StringVar(&options.ExecutableExtension, "exe-ext", "", "executable extension, derived from the platform by default")

	flags.BoolVar(&options.KeepArchive, "keep-archive", false, "keep the downloaded archive in the output directory")
	flags.BoolVar(&options.SkipShortcut, "no-shortcut", false, "do not create a desktop shortcut")
	flags.StringVar(&options.ShortcutDir, "shortcut-dir", "", "directory for the shortcut instead of the desktop")
	flags.BoolVar(&options.SkipLaunch, "no-launch", false, "do not start the application after packaging")
	flags.BoolVar(&options.SkipStopRunning, "no-stop-running", false, "do not stop running instances of the application")
	flags.DurationVar(&options.DownloadTimeout, "download-timeout", 0, "limit for the archive download, e.g. 5m")

	flags.StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&options.LogFile, "log-file", "", "also write logs to this rotating file")
}
