//go:build !windows

package installer

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the installer in its own process group so that
// cancellation also stops children such as the npx-spawned node process.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// A process that already exited is not a failure.
		if err := cmd.Process.Kill(); !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}
