package gesture

import "time"

// Weights configures how finger extension translates into confidence.
type Weights struct {
	Finger        float64 // per extended non-thumb finger
	Thumb         float64
	FistBonus     float64 // added when no finger is extended
	OpenHandBonus float64 // added when all five are extended
	Epsilon       float64 // minimum tip/joint separation, in normalized units
	MinConfidence float64
}

func DefaultWeights() Weights {
	return Weights{
		Finger:        0.2,
		Thumb:         0.15,
		FistBonus:     0.3,
		OpenHandBonus: 0.2,
		Epsilon:       0.02,
		MinConfidence: 0.2,
	}
}

// fingerJoints pairs each non-thumb fingertip with its proximal joint.
var fingerJoints = [4][2]int{
	{IndexTip, IndexPIP},
	{MiddleTip, MiddlePIP},
	{RingTip, RingPIP},
	{PinkyTip, PinkyPIP},
}

// Classifier turns a hand landmark set into a gesture. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	w Weights
}

func NewClassifier(w Weights) *Classifier {
	return &Classifier{w: w}
}

// Classify returns the gesture for hand, or ok=false when the confidence
// falls below the configured threshold.
func (c *Classifier) Classify(hand HandLandmarkSet, sourceID string, at time.Time) (Event, bool) {
	p := hand.Points
	var fingers []int
	confidence := 0.0

	if c.thumbExtended(hand) {
		fingers = append(fingers, 0)
		confidence += c.w.Thumb
	}
	for i, j := range fingerJoints {
		// y grows downward, so an extended fingertip sits above its joint.
		if p[j[0]].Y < p[j[1]].Y-c.w.Epsilon {
			fingers = append(fingers, i+1)
			confidence += c.w.Finger
		}
	}

	count := len(fingers)
	kind, _ := KindForCount(count)
	switch kind {
	case Fist:
		confidence += c.w.FistBonus
	case OpenHand:
		confidence += c.w.OpenHandBonus
	}
	confidence = clamp(confidence)

	if confidence < c.w.MinConfidence {
		return Event{}, false
	}
	if fingers == nil {
		fingers = []int{}
	}
	return Event{
		Kind:       kind,
		Fingers:    fingers,
		Count:      count,
		Confidence: confidence,
		Handedness: hand.Handedness,
		SourceID:   sourceID,
		Timestamp:  at,
	}, true
}

// thumbExtended compares the thumb tip with the joint below it along x.
// The direction an extended thumb points depends on which hand it is.
func (c *Classifier) thumbExtended(hand HandLandmarkSet) bool {
	tip := hand.Points[ThumbTip].X
	ip := hand.Points[ThumbIP].X
	if hand.Handedness == Left {
		return tip > ip+c.w.Epsilon
	}
	return tip < ip-c.w.Epsilon
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
