// Package instrument holds the closed set of instruments and the per-instrument
// gesture mapping tables used by dispatch.
package instrument

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

type Name string

const (
	Piano     Name = "piano"
	Drums     Name = "drums"
	Guitar    Name = "guitar"
	Flute     Name = "flute"
	Saxophone Name = "saxophone"
	Violin    Name = "violin"
	Synth     Name = "synth"
)

// Default is the instrument a new connection starts with.
const Default = Piano

// All lists every known instrument in a stable order.
var All = []Name{Piano, Drums, Guitar, Flute, Saxophone, Violin, Synth}

func (n Name) String() string { return string(n) }

func (n Name) Valid() bool {
	for _, k := range All {
		if n == k {
			return true
		}
	}
	return false
}

// Parse resolves a case-insensitive instrument name.
func Parse(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
	}
	return n, nil
}

func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// Mode says who turns gestures into sound for an instrument.
type Mode int

const (
	// Local instruments are played by the in-process engine.
	Local Mode = iota
	// Worker instruments are played by their supervised worker process,
	// which captures gestures on its own.
	Worker
)

func (m Mode) String() string {
	if m == Worker {
		return "worker"
	}
	return "local"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "local":
		return Local, nil
	case "worker":
		return Worker, nil
	}
	return 0, fmt.Errorf("unknown instrument mode %q", s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}
