//go:build windows

package agent

import "os/exec"

// configureProcAttr is a no-op on Windows; there are no process groups to
// configure and the daemon detaches on its own.
func configureProcAttr(_ *exec.Cmd) {}
