package gesture

// Synthetic builds a hand pose with exactly count fingers extended. Fingers
// extend in the order index, middle, ring, pinky, thumb, so a count of one
// is a pointing index finger.
func Synthetic(count int, h Handedness) HandLandmarkSet {
	var hand HandLandmarkSet
	hand.Handedness = h
	hand.Score = 0.95
	for i := range hand.Points {
		hand.Points[i] = Point3{X: 0.5, Y: 0.5}
	}

	for i, j := range fingerJoints {
		tip, pip := j[0], j[1]
		hand.Points[pip].Y = 0.5
		if i < count {
			hand.Points[tip].Y = 0.4
		} else {
			hand.Points[tip].Y = 0.6
		}
	}

	// Folded thumbs point the opposite way from extended ones.
	dx := -0.1
	if h == Left {
		dx = 0.1
	}
	hand.Points[ThumbIP].X = 0.5
	if count >= 5 {
		hand.Points[ThumbTip].X = 0.5 + dx
	} else {
		hand.Points[ThumbTip].X = 0.5 - dx
	}
	return hand
}
