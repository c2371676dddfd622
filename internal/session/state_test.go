package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

func TestLifecycleMarshalJSON(t *testing.T) {
	tests := []struct {
		state    Lifecycle
		expected string
	}{
		{Connected, `"connected"`},
		{Closing, `"closing"`},
		{Closed, `"closed"`},
		{Lifecycle(42), `"unknown"`},
	}

	for _, tt := range tests {
		data, err := json.Marshal(tt.state)
		if err != nil {
			t.Errorf("Marshal(%v) error: %v", tt.state, err)
			continue
		}
		if string(data) != tt.expected {
			t.Errorf("Marshal(%v) = %s, want %s", tt.state, data, tt.expected)
		}
	}
}

func TestNewSessionDefaults(t *testing.T) {
	cs := newTestSession("a", time.Now())

	if cs.Instrument() != "piano" {
		t.Errorf("default instrument = %s, want piano", cs.Instrument())
	}
	if cs.State() != Connected {
		t.Errorf("state = %v, want connected", cs.State())
	}
	if _, _, ok := cs.LastTrigger(); ok {
		t.Error("new session should have no last trigger")
	}

	snap := cs.Snapshot()
	if snap.LastTrigger != "" || snap.LastTriggerAt != nil || snap.LastBroadcast != "" {
		t.Errorf("new snapshot carries trigger state: %+v", snap)
	}
}

func TestCloseCancelsTimersAndResets(t *testing.T) {
	cs := newTestSession("a", time.Now())
	cs.policy.Observe(gesture.Peace, time.Now())

	fired := make(chan struct{}, 1)
	cs.timers.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })

	cs.close()

	if cs.State() != Closed {
		t.Errorf("state = %v after close, want closed", cs.State())
	}
	if _, _, ok := cs.LastTrigger(); ok {
		t.Error("close should reset trigger state")
	}

	select {
	case <-fired:
		t.Error("delayed effect fired after close")
	case <-time.After(60 * time.Millisecond):
	}

	cs.close() // idempotent
}

func TestSnapshotJSON(t *testing.T) {
	cs := newTestSession("abc", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cs.policy.Observe(gesture.Fist, time.Now())

	data, err := json.Marshal(cs.Snapshot())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["state"] != "connected" || m["instrument"] != "piano" || m["lastTrigger"] != "fist" {
		t.Errorf("unexpected snapshot JSON: %s", data)
	}
}
