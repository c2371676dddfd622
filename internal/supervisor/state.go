package supervisor

import (
	"encoding/json"
	"time"

	"github.com/vibe-virtuoso/backend/internal/instrument"
)

type State int

const (
	Idle State = iota
	Launching
	Running
	Terminating
)

var stateNames = map[State]string{
	Idle:        "idle",
	Launching:   "launching",
	Running:     "running",
	Terminating: "terminating",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Status is what the supervisor reports about the active instrument slot.
type Status struct {
	Instrument instrument.Name `json:"instrument,omitempty"`
	State      State           `json:"state"`
	PID        int             `json:"pid,omitempty"`
	Recording  string          `json:"recording,omitempty"`
	Since      time.Time       `json:"since"`
}

// SignalResult separates benign races from real signal failures.
type SignalResult int

const (
	Delivered SignalResult = iota
	AlreadyExited
	Failed
)

func (r SignalResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case AlreadyExited:
		return "already_exited"
	}
	return "failed"
}
