//go:build unix

package tools

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessGroup starts the command in its own process group and makes
// context cancellation kill the whole group, so children spawned by the
// script do not outlive it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}

// reapProcessGroup kills whatever is left of the command's process group
// once the command has been waited for.
func reapProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// ESRCH means the group is already gone.
	_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}
