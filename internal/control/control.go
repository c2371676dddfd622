// Package control turns keyboard shortcuts and voice-command text into
// instrument switches.
package control

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"unicode"

	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/supervisor"
)

// Switcher is the serialized entry point to the instrument slot.
type Switcher interface {
	Switch(ctx context.Context, name string) (supervisor.Status, error)
	Stop(ctx context.Context) supervisor.Status
}

// Action is one parsed command: either stop, or switch to Instrument.
type Action struct {
	Stop       bool
	Instrument instrument.Name
}

func (a Action) String() string {
	if a.Stop {
		return "stop"
	}
	return "switch to " + string(a.Instrument)
}

func (a Action) Apply(ctx context.Context, sw Switcher) (supervisor.Status, error) {
	if a.Stop {
		return sw.Stop(ctx), nil
	}
	return sw.Switch(ctx, string(a.Instrument))
}

var shortcuts = map[rune]instrument.Name{
	'1': instrument.Flute,
	'2': instrument.Drums,
	'3': instrument.Guitar,
	'4': instrument.Piano,
	'5': instrument.Saxophone,
	'6': instrument.Violin,
}

// KeyAction maps a single key press to an action.
func KeyAction(key rune) (Action, bool) {
	switch key {
	case 'q', 'Q', 27:
		return Action{Stop: true}, true
	}
	if name, ok := shortcuts[key]; ok {
		return Action{Instrument: name}, true
	}
	return Action{}, false
}

var aliases = map[string]instrument.Name{
	"sax":  instrument.Saxophone,
	"drum": instrument.Drums,
	"keys": instrument.Piano,
}

var stopWords = map[string]bool{"stop": true, "quit": true, "silence": true}

// VoiceAction finds the first instrument or stop word in a transcript.
func VoiceAction(text string) (Action, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if stopWords[w] {
			return Action{Stop: true}, true
		}
		if name, err := instrument.Parse(w); err == nil {
			return Action{Instrument: name}, true
		}
		if name, ok := aliases[w]; ok {
			return Action{Instrument: name}, true
		}
	}
	return Action{}, false
}

// ParseLine reads one console line: a single character is a shortcut,
// anything longer is treated as a voice transcript.
func ParseLine(line string) (Action, bool) {
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) == 1 {
		return KeyAction(r[0])
	}
	return VoiceAction(line)
}

// RunConsole applies commands read line by line from r until r is
// exhausted or ctx is cancelled.
func RunConsole(ctx context.Context, r io.Reader, sw Switcher) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		action, ok := ParseLine(line)
		if !ok {
			log.Printf("control: no instrument in %q", line)
			continue
		}
		st, err := action.Apply(ctx, sw)
		if err != nil {
			log.Printf("control: %s: %v", action, err)
			continue
		}
		log.Printf("control: %s -> %s %s", action, st.State, st.Instrument)
	}
	return scanner.Err()
}
