//go:build !windows
// +build !windows

package hlsbundle

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup makes cancellation kill the whole process group,
// so helper processes spawned by the tool do not outlive it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		pgid, err := syscall.Getpgid(cmd.Process.Pid)
		if err != nil {
			return cmd.Process.Kill()
		}
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
}
