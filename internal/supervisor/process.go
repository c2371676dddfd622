package supervisor

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// child is one spawned OS process and its reaper.
type child struct {
	cmd     *exec.Cmd
	pid     int
	started time.Time
	done    chan struct{}
	err     error // exit status, valid once done is closed
}

func startChild(command string, args, env []string, dir string) (*child, error) {
	cmd := exec.Command(command, args...)
	setProcessGroup(cmd)
	cmd.Env = append(os.Environ(), env...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &child{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go func() {
		c.err = c.cmd.Wait()
		close(c.done)
	}()
	return c, nil
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// waitExit blocks until the process exits, d elapses or ctx is done, and
// reports whether the process exited.
func (c *child) waitExit(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}
	return c.exited()
}
