package instrument

import (
	"errors"
	"testing"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"piano", Piano, false},
		{"  Guitar ", Guitar, false},
		{"SAXOPHONE", Saxophone, false},
		{"kazoo", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownInstrument) {
				t.Errorf("Parse(%q) err = %v, want ErrUnknownInstrument", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Parse(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestBuiltinTables(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := len(r.List()); got != len(All) {
		t.Fatalf("registry has %d instruments, want %d", got, len(All))
	}

	piano, _ := r.Get(Piano)
	if piano.Mode != Local {
		t.Errorf("piano mode = %v, want local", piano.Mode)
	}
	if n, ok := piano.Note(gesture.OpenHand); !ok || n != 69 {
		t.Errorf("piano open_hand = %d, %v; want 69", n, ok)
	}

	drums, _ := r.Get(Drums)
	if n, _ := drums.Note(gesture.Fist); n != 36 {
		t.Errorf("drums fist = %d, want kick 36", n)
	}
	if _, ok := drums.Note(gesture.Three); ok {
		t.Error("drums should leave three unmapped")
	}

	guitar, _ := r.Get(Guitar)
	if guitar.Mode != Worker {
		t.Errorf("guitar mode = %v, want worker", guitar.Mode)
	}
}

func TestOverrides(t *testing.T) {
	worker := Worker
	r, err := NewRegistry(map[Name]Override{
		Piano: {
			Mode:         &worker,
			Velocity:     64,
			NoteDuration: 2 * time.Second,
			Notes:        map[gesture.Kind]int{gesture.Fist: 48},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	piano, _ := r.Get(Piano)
	if piano.Mode != Worker || piano.Velocity != 64 || piano.NoteDuration != 2*time.Second {
		t.Errorf("override not applied: %+v", piano)
	}
	if n, _ := piano.Note(gesture.Fist); n != 48 {
		t.Errorf("fist = %d, want 48", n)
	}
	if n, _ := piano.Note(gesture.Point); n != 62 {
		t.Errorf("unrelated notes should keep defaults, point = %d", n)
	}

	fresh, _ := NewRegistry(nil)
	if n, _ := fresh.mustGet(Piano).Note(gesture.Fist); n != 60 {
		t.Errorf("override leaked into built-ins: fist = %d", n)
	}
}

func TestOverrideValidation(t *testing.T) {
	if _, err := NewRegistry(map[Name]Override{"kazoo": {}}); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("unknown override err = %v", err)
	}
	if _, err := NewRegistry(map[Name]Override{Piano: {Velocity: 200}}); err == nil {
		t.Error("velocity 200 should be rejected")
	}
}

func TestLookup(t *testing.T) {
	r, _ := NewRegistry(nil)

	spec, err := r.Lookup("Violin")
	if err != nil || spec.Name != Violin {
		t.Errorf("Lookup(Violin) = %+v, %v", spec, err)
	}
	if _, err := r.Lookup("theremin"); !errors.Is(err, ErrUnknownInstrument) {
		t.Errorf("Lookup(theremin) err = %v", err)
	}
}

func (r *Registry) mustGet(n Name) Spec {
	s, ok := r.Get(n)
	if !ok {
		panic("missing " + n)
	}
	return s
}
