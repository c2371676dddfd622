package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

func newTestDispatcher(t *testing.T, engine Engine) *Dispatcher {
	t.Helper()
	local := instrument.Local
	reg, err := instrument.NewRegistry(map[instrument.Name]instrument.Override{
		instrument.Piano: {Mode: &local, NoteDuration: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	d := New(reg, engine)
	t.Cleanup(d.Close)
	return d
}

func waitForEvents(t *testing.T, e *RecordingEngine, n int) []NoteEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev := e.Events(); len(ev) >= n {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d engine events, have %v", n, e.Events())
	return nil
}

func TestDispatchLocalPlaysAndReleases(t *testing.T) {
	engine := &RecordingEngine{}
	d := newTestDispatcher(t, engine)

	res := d.Dispatch(gesture.Event{Kind: gesture.OpenHand}, instrument.Piano, nil)
	if res.Outcome != Played || res.Note != 69 {
		t.Fatalf("Dispatch = %+v, want played note 69", res)
	}

	events := waitForEvents(t, engine, 2)
	if !events[0].On || events[0].Note != 69 || events[0].Velocity != 100 {
		t.Errorf("first event = %+v, want note on 69 velocity 100", events[0])
	}
	if events[1].On || events[1].Note != 69 {
		t.Errorf("second event = %+v, want note off 69", events[1])
	}
}

func TestDispatchWorkerInstrumentIsNoop(t *testing.T) {
	engine := &RecordingEngine{}
	d := newTestDispatcher(t, engine)

	res := d.Dispatch(gesture.Event{Kind: gesture.Fist}, instrument.Guitar, nil)
	if res.Outcome != Skipped {
		t.Errorf("Outcome = %v, want skipped", res.Outcome)
	}
	if len(engine.Events()) != 0 {
		t.Errorf("engine called for worker instrument: %v", engine.Events())
	}
}

func TestDispatchUnmappedGesture(t *testing.T) {
	d := newTestDispatcher(t, &RecordingEngine{})

	res := d.Dispatch(gesture.Event{Kind: gesture.Three}, instrument.Drums, nil)
	if res.Outcome != Unmapped {
		t.Errorf("Outcome = %v, want unmapped", res.Outcome)
	}
}

func TestDispatchEngineFailureIsReported(t *testing.T) {
	boom := errors.New("synth offline")
	d := newTestDispatcher(t, &RecordingEngine{Err: boom})

	res := d.Dispatch(gesture.Event{Kind: gesture.Fist}, instrument.Piano, nil)
	if res.Outcome != Failed || !errors.Is(res.Err, boom) {
		t.Errorf("Dispatch = %+v, want failed with engine error", res)
	}
}

func TestDispatchUnknownInstrument(t *testing.T) {
	d := newTestDispatcher(t, &RecordingEngine{})

	res := d.Dispatch(gesture.Event{Kind: gesture.Fist}, instrument.Name("kazoo"), nil)
	if res.Outcome != Failed || !errors.Is(res.Err, instrument.ErrUnknownInstrument) {
		t.Errorf("Dispatch = %+v, want ErrUnknownInstrument", res)
	}
}

func TestDispatchScopedReleaseCancelled(t *testing.T) {
	engine := &RecordingEngine{}
	d := newTestDispatcher(t, engine)
	scope := timers.NewGroup()

	d.Dispatch(gesture.Event{Kind: gesture.Point}, instrument.Piano, scope)
	scope.Stop()

	time.Sleep(50 * time.Millisecond)
	events := engine.Events()
	if len(events) != 1 || !events[0].On {
		t.Errorf("events = %+v, want only the note on after scope cancel", events)
	}
}
