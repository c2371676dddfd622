// Package supervisor owns the single active instrument worker process.
// Every caller that wants a different instrument goes through Switch; no
// one else signals worker processes.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vibe-virtuoso/backend/internal/archive"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

var ErrSpawn = errors.New("spawn failed")

const (
	killWait     = 2 * time.Second
	sweepTimeout = 5 * time.Second
	saveTimeout  = 15 * time.Second
)

type Config struct {
	// Command is the worker executable. It receives Args followed by the
	// instrument name.
	Command       string
	Args          []string
	Env           []string
	Dir           string
	GracePeriod   time.Duration
	SettleDelay   time.Duration
	SweepPatterns []string
	Recorder      RecorderConfig
}

// RecorderConfig describes the companion recording process. It receives
// Args followed by the output file path. An empty Command disables it.
type RecorderConfig struct {
	Command     string
	Args        []string
	Dir         string
	GracePeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		GracePeriod: 4 * time.Second,
		SettleDelay: 200 * time.Millisecond,
		Recorder: RecorderConfig{
			Dir:         "recordings",
			GracePeriod: 3 * time.Second,
		},
	}
}

// handle is one launched instrument. Its timers live exactly as long as it
// is Running.
type handle struct {
	instrument instrument.Name
	worker     *child
	recorder   *recording
	timers     *timers.Group
}

type Supervisor struct {
	cfg      Config
	registry *instrument.Registry
	sweeper  *Sweeper
	sink     archive.Sink
	signal   func(pid int, force bool) (SignalResult, error)

	// switchMu serializes Switch and Stop.
	switchMu sync.Mutex

	mu       sync.RWMutex
	current  *handle
	state    State
	since    time.Time
	onChange func(Status)
}

func New(cfg Config, registry *instrument.Registry, sink archive.Sink) *Supervisor {
	if sink == nil {
		sink = archive.Discard{}
	}
	return &Supervisor{
		cfg:      cfg,
		registry: registry,
		sweeper:  NewSweeper(cfg.SweepPatterns),
		sink:     sink,
		signal:   signalGroup,
		state:    Idle,
		since:    time.Now(),
	}
}

// OnChange registers fn to be called after every state transition.
// Transitions are reported in order.
func (s *Supervisor) OnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Supervisor) statusLocked() Status {
	st := Status{State: s.state, Since: s.since}
	if h := s.current; h != nil {
		st.Instrument = h.instrument
		if h.worker != nil {
			st.PID = h.worker.pid
		}
		if h.recorder != nil {
			st.Recording = h.recorder.filename
		}
	}
	return st
}

// Scope returns the timer group of the running instrument, or nil when
// nothing is running.
func (s *Supervisor) Scope() *timers.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.state != Running {
		return nil
	}
	return s.current.timers
}

// Switch makes name the running instrument. Unknown names are rejected
// before any process is touched. Switching to the instrument that is
// already running is a no-op. Concurrent calls run one at a time.
func (s *Supervisor) Switch(ctx context.Context, name string) (Status, error) {
	spec, err := s.registry.Lookup(name)
	if err != nil {
		metricSwitches.WithLabelValues("rejected").Inc()
		return s.Status(), err
	}

	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	if s.isRunning(spec.Name) {
		metricSwitches.WithLabelValues("noop").Inc()
		return s.Status(), nil
	}

	s.stopLocked(ctx)
	if err := s.launchLocked(spec.Name); err != nil {
		metricSwitches.WithLabelValues("failed").Inc()
		return s.Status(), err
	}
	metricSwitches.WithLabelValues("launched").Inc()
	return s.Status(), nil
}

// Stop terminates the running instrument, if any. It always leaves the
// supervisor Idle.
func (s *Supervisor) Stop(ctx context.Context) Status {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	s.stopLocked(ctx)
	return s.Status()
}

func (s *Supervisor) isRunning(name instrument.Name) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.current
	return h != nil && s.state == Running && h.instrument == name && !h.worker.exited()
}

func (s *Supervisor) setState(h *handle, st State) {
	s.mu.Lock()
	s.current = h
	s.state = st
	s.since = time.Now()
	status := s.statusLocked()
	fn := s.onChange
	s.mu.Unlock()

	if st == Running {
		gaugeRunning.Set(1)
	} else {
		gaugeRunning.Set(0)
	}
	if fn != nil {
		fn(status)
	}
}

func (s *Supervisor) launchLocked(name instrument.Name) error {
	h := &handle{instrument: name, timers: timers.NewGroup()}
	s.setState(h, Launching)

	var err error
	if s.cfg.Command == "" {
		err = errors.New("no worker command configured")
	} else {
		args := append(append([]string(nil), s.cfg.Args...), string(name))
		h.worker, err = startChild(s.cfg.Command, args, s.cfg.Env, s.cfg.Dir)
	}
	if err != nil {
		h.timers.Stop()
		s.setState(nil, Idle)
		log.Printf("supervisor: launching %s failed: %v", name, err)
		return fmt.Errorf("%w: %s: %v", ErrSpawn, name, err)
	}
	if s.cfg.Recorder.Command != "" {
		rec, err := s.startRecorder(name)
		if err != nil {
			log.Printf("supervisor: recorder for %s not started: %v", name, err)
		} else {
			h.recorder = rec
		}
	}

	s.setState(h, Running)
	go s.watch(h)
	log.Printf("supervisor: %s running (pid %d)", name, h.worker.pid)
	return nil
}

// watch releases the slot when the running worker dies on its own, so
// Status never reports a dead process as running.
func (s *Supervisor) watch(h *handle) {
	<-h.worker.done
	if !s.owns(h) {
		return
	}
	log.Printf("supervisor: %s worker (pid %d) exited on its own: %v", h.instrument, h.worker.pid, h.worker.err)

	s.switchMu.Lock()
	defer s.switchMu.Unlock()
	// A switch may have replaced the handle while we waited.
	if s.owns(h) {
		s.stopLocked(context.Background())
	}
}

func (s *Supervisor) owns(h *handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current == h && s.state == Running
}

// stopLocked runs the whole kill sequence. Cancelling ctx does not shorten
// it: a worker or recorder always gets its full grace period.
func (s *Supervisor) stopLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	s.mu.RLock()
	h, st := s.current, s.state
	s.mu.RUnlock()
	if h == nil || st != Running {
		return
	}

	s.setState(h, Terminating)
	if n := h.timers.Stop(); n > 0 {
		log.Printf("supervisor: cancelled %d pending effects for %s", n, h.instrument)
	}

	if h.recorder != nil {
		s.stopRecorder(ctx, h.recorder)
	}
	s.terminate(ctx, h.worker, string(h.instrument)+" worker", s.cfg.GracePeriod)

	sweepCtx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	if _, err := s.sweeper.Sweep(sweepCtx); err != nil {
		log.Printf("supervisor: sweep: %v", err)
	}
	cancel()

	time.Sleep(s.cfg.SettleDelay)
	s.setState(nil, Idle)
	log.Printf("supervisor: %s stopped", h.instrument)
}

// terminate asks the process group to exit, waits up to grace and then
// kills it. Failures are logged; the caller always moves on.
func (s *Supervisor) terminate(ctx context.Context, c *child, what string, grace time.Duration) {
	res, err := s.signal(c.pid, false)
	s.noteSignal(what, c.pid, res, err)
	if c.waitExit(ctx, grace) {
		return
	}

	log.Printf("supervisor: %s (pid %d) still running after %s, killing", what, c.pid, grace)
	metricForceKills.Inc()
	res, err = s.signal(c.pid, true)
	s.noteSignal(what, c.pid, res, err)
	if !c.waitExit(context.Background(), killWait) {
		log.Printf("supervisor: WARNING %s (pid %d) survived SIGKILL, orphan risk", what, c.pid)
	}
}

func (s *Supervisor) noteSignal(what string, pid int, res SignalResult, err error) {
	metricSignals.WithLabelValues(res.String()).Inc()
	if res == Failed {
		log.Printf("supervisor: signaling %s (pid %d): %v", what, pid, err)
	}
}
