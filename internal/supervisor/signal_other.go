//go:build !unix

package supervisor

import (
	"errors"
	"os"
	"os/exec"
)

// setProcessGroup is a no-op where process groups are unavailable.
func setProcessGroup(cmd *exec.Cmd) {}

// signalGroup falls back to signaling the worker alone. There is no
// graceful signal here, so both stages kill.
func signalGroup(pid int, force bool) (SignalResult, error) {
	if pid <= 0 {
		return AlreadyExited, nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return AlreadyExited, nil
	}
	err = p.Kill()
	switch {
	case err == nil:
		return Delivered, nil
	case errors.Is(err, os.ErrProcessDone):
		return AlreadyExited, nil
	}
	return Failed, err
}
