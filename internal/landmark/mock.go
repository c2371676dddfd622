package landmark

import (
	"context"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

// Mock cycles a right hand through every finger count, holding each pose
// for step. It lets the server run without a detection model.
type Mock struct {
	start time.Time
	step  time.Duration
	now   func() time.Time
}

func NewMock(step time.Duration) *Mock {
	if step <= 0 {
		step = 2 * time.Second
	}
	return &Mock{start: time.Now(), step: step, now: time.Now}
}

func (m *Mock) Detect(_ context.Context, _ Frame) ([]gesture.HandLandmarkSet, error) {
	elapsed := m.now().Sub(m.start)
	count := int(elapsed/m.step) % len(gesture.Kinds)
	return []gesture.HandLandmarkSet{gesture.Synthetic(count, gesture.Right)}, nil
}
