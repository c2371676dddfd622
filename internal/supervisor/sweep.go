package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Sweeper kills stray worker processes left behind by earlier crashes.
// A process matches when its command line contains any of Patterns.
type Sweeper struct {
	Patterns []string
	self     int32
}

func NewSweeper(patterns []string) *Sweeper {
	return &Sweeper{Patterns: patterns, self: int32(os.Getpid())}
}

// Sweep force-kills every matching process and returns how many it killed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if len(s.Patterns) == 0 {
		return 0, nil
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	killed := 0
	for _, p := range procs {
		if p.Pid == s.self {
			continue
		}
		parts, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline := cleanCmdline(parts)
		if !s.matches(cmdline) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			log.Printf("supervisor: sweep could not kill pid %d (%s): %v", p.Pid, cmdline, err)
			continue
		}
		log.Printf("supervisor: sweep killed stray pid %d (%s)", p.Pid, cmdline)
		killed++
	}
	if killed > 0 {
		metricSweepKills.Add(float64(killed))
	}
	return killed, nil
}

func (s *Sweeper) matches(cmdline string) bool {
	if cmdline == "" {
		return false
	}
	for _, p := range s.Patterns {
		if p != "" && strings.Contains(cmdline, p) {
			return true
		}
	}
	return false
}

func cleanCmdline(parts []string) string {
	var cleaned []string
	for _, p := range parts {
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, " ")
}
