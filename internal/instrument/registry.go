package instrument

import (
	"fmt"
	"sort"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

// Spec is the mapping table for one instrument.
type Spec struct {
	Name         Name                 `json:"name"`
	Mode         Mode                 `json:"mode"`
	Velocity     int                  `json:"velocity"`
	NoteDuration time.Duration        `json:"noteDuration"`
	Notes        map[gesture.Kind]int `json:"-"`
}

// Note returns the MIDI note for k and whether the instrument maps it.
func (s Spec) Note(k gesture.Kind) (int, bool) {
	n, ok := s.Notes[k]
	return n, ok
}

// Override replaces parts of a built-in spec. Zero values keep the default.
type Override struct {
	Mode         *Mode
	Velocity     int
	NoteDuration time.Duration
	Notes        map[gesture.Kind]int
}

// scale maps finger counts 0..5 to notes.
func scale(notes ...int) map[gesture.Kind]int {
	m := make(map[gesture.Kind]int, len(notes))
	for i, n := range notes {
		m[gesture.Kinds[i]] = n
	}
	return m
}

func builtins() map[Name]Spec {
	return map[Name]Spec{
		Piano: {Mode: Local, Velocity: 100, NoteDuration: 800 * time.Millisecond,
			Notes: scale(60, 62, 64, 65, 67, 69)},
		Drums: {Mode: Local, Velocity: 120, NoteDuration: 150 * time.Millisecond,
			Notes: map[gesture.Kind]int{
				gesture.Fist:     36, // kick
				gesture.Point:    38, // snare
				gesture.Peace:    42, // closed hi-hat
				gesture.Four:     46,
				gesture.OpenHand: 46, // open hi-hat
			}},
		Guitar: {Mode: Worker, Velocity: 100, NoteDuration: time.Second,
			Notes: scale(40, 45, 50, 55, 59, 64)},
		Flute: {Mode: Worker, Velocity: 90, NoteDuration: 600 * time.Millisecond,
			Notes: scale(72, 74, 76, 77, 79, 81)},
		Saxophone: {Mode: Worker, Velocity: 100, NoteDuration: 600 * time.Millisecond,
			Notes: scale(58, 60, 62, 63, 65, 67)},
		Violin: {Mode: Worker, Velocity: 90, NoteDuration: time.Second,
			Notes: scale(55, 62, 69, 76, 79, 81)},
		Synth: {Mode: Worker, Velocity: 100, NoteDuration: 500 * time.Millisecond,
			Notes: scale(48, 52, 55, 60, 64, 67)},
	}
}

// Registry resolves instrument names to their mapping tables. It is
// immutable after construction.
type Registry struct {
	specs map[Name]Spec
}

// NewRegistry builds the registry from the built-in tables with overrides
// applied on top.
func NewRegistry(overrides map[Name]Override) (*Registry, error) {
	specs := builtins()
	for name, o := range overrides {
		spec, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, name)
		}
		if o.Mode != nil {
			spec.Mode = *o.Mode
		}
		if o.Velocity > 0 {
			if o.Velocity > 127 {
				return nil, fmt.Errorf("instrument %s: velocity %d out of range", name, o.Velocity)
			}
			spec.Velocity = o.Velocity
		}
		if o.NoteDuration > 0 {
			spec.NoteDuration = o.NoteDuration
		}
		if len(o.Notes) > 0 {
			notes := make(map[gesture.Kind]int, len(spec.Notes))
			for k, v := range spec.Notes {
				notes[k] = v
			}
			for k, v := range o.Notes {
				notes[k] = v
			}
			spec.Notes = notes
		}
		specs[name] = spec
	}
	for name, spec := range specs {
		spec.Name = name
		specs[name] = spec
	}
	return &Registry{specs: specs}, nil
}

// Lookup validates s against the registry.
func (r *Registry) Lookup(s string) (Spec, error) {
	name, err := Parse(s)
	if err != nil {
		return Spec{}, err
	}
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
	}
	return spec, nil
}

func (r *Registry) Get(n Name) (Spec, bool) {
	spec, ok := r.specs[n]
	return spec, ok
}

// List returns every spec sorted by name.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
