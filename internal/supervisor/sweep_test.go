//go:build unix

package supervisor

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestSweepKillsMatchingProcess(t *testing.T) {
	cmd := exec.Command("sleep", "2718")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()
	// Give the child time to exec so its cmdline is the sleep's.
	time.Sleep(100 * time.Millisecond)

	n, err := NewSweeper([]string{"sleep 2718"}).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n < 1 {
		t.Errorf("Sweep killed %d processes, want at least 1", n)
	}

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		cmd.Process.Kill()
		t.Fatal("swept process still running")
	}
}

func TestSweepWithoutPatterns(t *testing.T) {
	n, err := NewSweeper(nil).Sweep(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Sweep = %d, %v; want 0, nil", n, err)
	}
}

func TestSweepSkipsSelf(t *testing.T) {
	n, err := NewSweeper([]string{os.Args[0]}).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("Sweep killed %d processes matching the test binary", n)
	}
}

func TestSweeperMatches(t *testing.T) {
	s := NewSweeper([]string{"gesture_guitar", "vv-worker"})
	tests := []struct {
		name    string
		cmdline string
		want    bool
	}{
		{"script", "python3 scripts/gesture_guitar.py", true},
		{"worker binary", "/usr/local/bin/vv-worker guitar", true},
		{"unrelated", "python3 app.py", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.matches(tt.cmdline); got != tt.want {
				t.Errorf("matches(%q) = %v, want %v", tt.cmdline, got, tt.want)
			}
		})
	}
}

func TestCleanCmdline(t *testing.T) {
	got := cleanCmdline([]string{"sh", "", "-c", "sleep 1", ""})
	if got != "sh -c sleep 1" {
		t.Errorf("cleanCmdline = %q", got)
	}
}
