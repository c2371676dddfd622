// Package landmark connects the pipeline to the external hand-landmark model.
package landmark

import (
	"context"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

// MaxHands is the most hands reported per frame.
const MaxHands = 2

// Frame is one camera frame. Data keeps the original encoded bytes so
// detectors that run out of process can forward them untouched; only the
// header has been parsed.
type Frame struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Detector finds hands in a frame. The pipeline treats it as a pure call;
// implementations must be safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]gesture.HandLandmarkSet, error)
}

// DetectorFunc adapts an ordinary function to Detector.
type DetectorFunc func(ctx context.Context, f Frame) ([]gesture.HandLandmarkSet, error)

func (fn DetectorFunc) Detect(ctx context.Context, f Frame) ([]gesture.HandLandmarkSet, error) {
	return fn(ctx, f)
}

// None never finds a hand.
var None = DetectorFunc(func(context.Context, Frame) ([]gesture.HandLandmarkSet, error) {
	return nil, nil
})
