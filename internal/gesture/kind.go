package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownGesture is returned when a gesture name is not one of the
// closed set of kinds.
var ErrUnknownGesture = errors.New("unknown gesture")

type Kind int

const (
	Fist Kind = iota
	Point
	Peace
	Three
	Four
	OpenHand
)

// Kinds lists every gesture kind, indexed by extended finger count.
var Kinds = [...]Kind{Fist, Point, Peace, Three, Four, OpenHand}

var kindNames = map[Kind]string{
	Fist:     "fist",
	Point:    "point",
	Peace:    "peace",
	Three:    "three",
	Four:     "four",
	OpenHand: "open_hand",
}

var kindFromName = map[string]Kind{
	"fist":      Fist,
	"point":     Point,
	"peace":     Peace,
	"three":     Three,
	"four":      Four,
	"open_hand": OpenHand,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind resolves a wire name such as "open_hand".
func ParseKind(name string) (Kind, error) {
	if k, ok := kindFromName[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGesture, name)
}

// KindForCount maps an extended finger count to its gesture.
func KindForCount(count int) (Kind, bool) {
	if count < 0 || count >= len(Kinds) {
		return 0, false
	}
	return Kinds[count], true
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

type Handedness int

const (
	Right Handedness = iota
	Left
)

func (h Handedness) String() string {
	if h == Left {
		return "Left"
	}
	return "Right"
}

func (h Handedness) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Handedness) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Left", "left":
		*h = Left
	case "Right", "right":
		*h = Right
	default:
		return fmt.Errorf("unknown handedness %q", s)
	}
	return nil
}
