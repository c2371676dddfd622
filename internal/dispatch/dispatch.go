// Package dispatch routes triggered gestures to the in-process audio engine.
package dispatch

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/timers"
)

var (
	metricDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_notes_total",
		Help: "Notes sent to the audio engine, by instrument",
	}, []string{"instrument"})

	metricDispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_errors_total",
		Help: "Engine calls that returned an error",
	})
)

// Outcome describes what Dispatch did with an event.
type Outcome int

const (
	Played   Outcome = iota
	Skipped          // worker-driven instrument, the worker plays it
	Unmapped         // instrument has no note for this gesture
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Played:
		return "played"
	case Skipped:
		return "skipped"
	case Unmapped:
		return "unmapped"
	}
	return "failed"
}

type Result struct {
	Outcome Outcome
	Note    int
	Err     error
}

type Dispatcher struct {
	registry *instrument.Registry
	engine   Engine
	timers   *timers.Group
}

func New(registry *instrument.Registry, engine Engine) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		engine:   engine,
		timers:   timers.NewGroup(),
	}
}

// Dispatch plays ev on inst. The note-off is scheduled on scope so it can be
// cancelled with the scope's owner; a nil scope uses the dispatcher's own
// group. Failures are logged and reported in the Result, never panicked.
func (d *Dispatcher) Dispatch(ev gesture.Event, inst instrument.Name, scope *timers.Group) Result {
	spec, ok := d.registry.Get(inst)
	if !ok {
		err := fmt.Errorf("%w: %q", instrument.ErrUnknownInstrument, inst)
		log.Printf("dispatch: %v", err)
		return Result{Outcome: Failed, Err: err}
	}
	if spec.Mode == instrument.Worker {
		return Result{Outcome: Skipped}
	}

	note, ok := spec.Note(ev.Kind)
	if !ok {
		return Result{Outcome: Unmapped}
	}

	if err := d.engine.Trigger(note, inst, spec.Velocity); err != nil {
		metricDispatchErrors.Inc()
		log.Printf("dispatch: trigger %s note %d: %v", inst, note, err)
		return Result{Outcome: Failed, Note: note, Err: err}
	}
	metricDispatched.WithLabelValues(string(inst)).Inc()

	if scope == nil {
		scope = d.timers
	}
	scope.AfterFunc(spec.NoteDuration, func() {
		if err := d.engine.Release(note, inst); err != nil {
			metricDispatchErrors.Inc()
			log.Printf("dispatch: release %s note %d: %v", inst, note, err)
		}
	})

	return Result{Outcome: Played, Note: note}
}

// Close cancels note-offs scheduled on the dispatcher's own group.
func (d *Dispatcher) Close() {
	d.timers.Stop()
}
