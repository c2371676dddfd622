//go:build unix

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so the worker
// and anything it spawns can be signaled together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends SIGTERM, or SIGKILL when force is set, to the process
// group led by pid.
func signalGroup(pid int, force bool) (SignalResult, error) {
	if pid <= 0 {
		return AlreadyExited, nil
	}
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	err := syscall.Kill(-pid, sig)
	switch {
	case err == nil:
		return Delivered, nil
	case errors.Is(err, syscall.ESRCH):
		return AlreadyExited, nil
	}
	return Failed, err
}
