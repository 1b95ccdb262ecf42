//go:build !windows

package agent

import (
	"os/exec"
	"syscall"
)

// configureProcAttr sets up process group isolation so a launched agent
// and its children can be signaled as a group, detached from the sweep.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
