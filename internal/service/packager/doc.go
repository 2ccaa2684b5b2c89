// Package packager runs the whole packaging pipeline.
//
// It resolves settings from defaults, the YAML file and command-line
// overrides, guards the output directory with a run marker, then downloads
// the runtime, assembles the package, relocates it to the work directory,
// writes a desktop shortcut and finally launches the application.
package packager
