//go:build !windows

package adapters

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the agent in its own process group so that
// cancellation kills any helpers it spawned along with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
