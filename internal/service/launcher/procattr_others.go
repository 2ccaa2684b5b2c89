//go:build !windows

package launcher

import "os/exec"

// hideWindow is a no-op outside Windows: processes get no window of their own.
func hideWindow(_ *exec.Cmd) {}
