// Package timers provides a set of delayed callbacks that can be cancelled
// together when the owner of the set goes away.
package timers

import (
	"sync"
	"time"
)

// Group tracks pending callbacks. After Stop, pending callbacks never run
// and new ones are refused.
type Group struct {
	mu      sync.Mutex
	pending map[*time.Timer]struct{}
	stopped bool
}

func NewGroup() *Group {
	return &Group{pending: make(map[*time.Timer]struct{})}
}

// AfterFunc schedules f after d. It reports false when the group has
// already been stopped.
func (g *Group) AfterFunc(d time.Duration, f func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		g.mu.Lock()
		if _, ok := g.pending[t]; !ok {
			g.mu.Unlock()
			return
		}
		delete(g.pending, t)
		g.mu.Unlock()
		f()
	})
	g.pending[t] = struct{}{}
	return true
}

// Stop cancels every pending callback and returns how many were cancelled.
func (g *Group) Stop() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	n := 0
	for t := range g.pending {
		t.Stop()
		delete(g.pending, t)
		n++
	}
	return n
}

func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *Group) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}
