package gesture

import "time"

// LandmarkCount is the number of keypoints the detection model reports per hand.
const LandmarkCount = 21

// Keypoint indices used by the classifier.
const (
	Wrist     = 0
	ThumbIP   = 3
	ThumbTip  = 4
	IndexPIP  = 6
	IndexTip  = 8
	MiddlePIP = 10
	MiddleTip = 12
	RingPIP   = 14
	RingTip   = 16
	PinkyPIP  = 18
	PinkyTip  = 20
)

// Point3 is one keypoint. X and Y are normalized to the frame, Z is
// relative depth.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarkSet is one detected hand as supplied by the detection model.
type HandLandmarkSet struct {
	Points     [LandmarkCount]Point3
	Handedness Handedness
	Score      float64
}

// Event is a classified gesture. Values are never mutated after
// classification.
type Event struct {
	Kind       Kind       `json:"name"`
	Fingers    []int      `json:"fingers"`
	Count      int        `json:"count"`
	Confidence float64    `json:"confidence"`
	Handedness Handedness `json:"handedness"`
	SourceID   string     `json:"-"`
	Timestamp  time.Time  `json:"-"`
}
