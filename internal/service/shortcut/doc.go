// Package shortcut places a desktop shortcut to the packaged application.
//
// Windows and macOS runtimes get an Internet Shortcut (.url) file, Linux
// runtimes a freedesktop .desktop entry. The desktop directory is resolved
// with adrg/xdg unless overridden.
package shortcut
