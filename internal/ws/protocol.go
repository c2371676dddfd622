package ws

import (
	"time"

	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/supervisor"
)

// MsgSupervisorState is pushed to every client on a supervisor transition.
// Per-connection messages are defined by the session package.
const MsgSupervisorState = "supervisor_state"

type SupervisorState struct {
	Type       string           `json:"type"`
	Instrument instrument.Name  `json:"instrument,omitempty"`
	State      supervisor.State `json:"state"`
	PID        int              `json:"pid,omitempty"`
	Recording  string           `json:"recording,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

func newSupervisorState(st supervisor.Status) SupervisorState {
	return SupervisorState{
		Type:       MsgSupervisorState,
		Instrument: st.Instrument,
		State:      st.State,
		PID:        st.PID,
		Recording:  st.Recording,
		Timestamp:  st.Since.UTC().Format(time.RFC3339Nano),
	}
}

// API bodies.

type instrumentRequest struct {
	Instrument string `json:"instrument"`
}

type playRequest struct {
	Gesture    string `json:"gesture"`
	Instrument string `json:"instrument,omitempty"`
}

type playResponse struct {
	Outcome    string          `json:"outcome"`
	Instrument instrument.Name `json:"instrument"`
	Note       int             `json:"note,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type voiceRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Sessions   int               `json:"sessions"`
	Clients    int               `json:"clients"`
	Supervisor supervisor.Status `json:"supervisor"`
}
