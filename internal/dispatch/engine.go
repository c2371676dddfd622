package dispatch

import (
	"log"
	"sync"

	"github.com/vibe-virtuoso/backend/internal/instrument"
)

// Engine is the audio/synth collaborator. Implementations must be safe for
// concurrent use; triggers arrive from every connection.
type Engine interface {
	Trigger(note int, inst instrument.Name, velocity int) error
	Release(note int, inst instrument.Name) error
}

// LogEngine stands in for a synthesizer by logging note events.
type LogEngine struct{}

func (LogEngine) Trigger(note int, inst instrument.Name, velocity int) error {
	log.Printf("engine: note on %d (%s, velocity %d)", note, inst, velocity)
	return nil
}

func (LogEngine) Release(note int, inst instrument.Name) error {
	log.Printf("engine: note off %d (%s)", note, inst)
	return nil
}

// NoteEvent is one call recorded by RecordingEngine.
type NoteEvent struct {
	On         bool
	Note       int
	Instrument instrument.Name
	Velocity   int
}

// RecordingEngine keeps every call in memory. Useful for the mock server
// mode and for tests.
type RecordingEngine struct {
	mu     sync.Mutex
	events []NoteEvent
	Err    error
}

func (e *RecordingEngine) Trigger(note int, inst instrument.Name, velocity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.events = append(e.events, NoteEvent{On: true, Note: note, Instrument: inst, Velocity: velocity})
	return nil
}

func (e *RecordingEngine) Release(note int, inst instrument.Name) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, NoteEvent{Note: note, Instrument: inst})
	return nil
}

func (e *RecordingEngine) Events() []NoteEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]NoteEvent, len(e.events))
	copy(out, e.events)
	return out
}
