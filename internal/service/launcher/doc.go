// Package launcher starts the packaged application and stops running copies of it.
//
// Run spawns the executable without a console window on Windows and waits
// for it to exit. StopRunning terminates processes with a given executable
// name so their installation directory can be replaced.
package launcher
