package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

type Lifecycle int

const (
	Connected Lifecycle = iota
	Closing
	Closed
)

var lifecycleNames = map[Lifecycle]string{
	Connected: "connected",
	Closing:   "closing",
	Closed:    "closed",
}

func (l Lifecycle) String() string {
	if s, ok := lifecycleNames[l]; ok {
		return s
	}
	return "unknown"
}

func (l Lifecycle) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ConnectionSession is the per-connection state. Its fields are only
// mutated by the connection's own message processing; mu lets the HTTP
// API read a consistent snapshot meanwhile.
type ConnectionSession struct {
	ID          string
	ConnectedAt time.Time

	mu            sync.Mutex
	instrument    instrument.Name
	lastBroadcast gesture.Kind
	hasBroadcast  bool
	policy        *gesture.Policy
	timers        *timers.Group
	state         Lifecycle
	frames        int
	triggers      int
}

func newConnectionSession(id string, now time.Time, policy *gesture.Policy) *ConnectionSession {
	return &ConnectionSession{
		ID:          id,
		ConnectedAt: now,
		instrument:  instrument.Default,
		policy:      policy,
		timers:      timers.NewGroup(),
		state:       Connected,
	}
}

func (s *ConnectionSession) Instrument() instrument.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instrument
}

func (s *ConnectionSession) State() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastTrigger returns the label and time of the last audible trigger.
func (s *ConnectionSession) LastTrigger() (gesture.Kind, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Last()
}

// close moves the session through Closing to Closed and cancels any
// delayed effects it scheduled.
func (s *ConnectionSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.state = Closing
	s.timers.Stop()
	s.policy.Reset()
	s.state = Closed
}

// Snapshot is a read-only copy of a session for the HTTP API.
type Snapshot struct {
	ID            string          `json:"id"`
	Instrument    instrument.Name `json:"instrument"`
	State         Lifecycle       `json:"state"`
	ConnectedAt   time.Time       `json:"connectedAt"`
	LastBroadcast string          `json:"lastBroadcast,omitempty"`
	LastTrigger   string          `json:"lastTrigger,omitempty"`
	LastTriggerAt *time.Time      `json:"lastTriggerAt,omitempty"`
	Frames        int             `json:"frames"`
	Triggers      int             `json:"triggers"`
}

func (s *ConnectionSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:          s.ID,
		Instrument:  s.instrument,
		State:       s.state,
		ConnectedAt: s.ConnectedAt,
		Frames:      s.frames,
		Triggers:    s.triggers,
	}
	if s.hasBroadcast {
		snap.LastBroadcast = s.lastBroadcast.String()
	}
	if k, at, ok := s.policy.Last(); ok {
		snap.LastTrigger = k.String()
		snap.LastTriggerAt = &at
	}
	return snap
}
