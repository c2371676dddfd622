package gesture

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestClassifyFingerCounts(t *testing.T) {
	c := NewClassifier(DefaultWeights())
	now := time.Now()

	tests := []struct {
		count int
		want  Kind
	}{
		{0, Fist},
		{1, Point},
		{2, Peace},
		{3, Three},
		{4, Four},
		{5, OpenHand},
	}

	for _, h := range []Handedness{Right, Left} {
		for _, tt := range tests {
			t.Run(h.String()+"/"+tt.want.String(), func(t *testing.T) {
				ev, ok := c.Classify(Synthetic(tt.count, h), "s1", now)
				if !ok {
					t.Fatalf("Classify(%d fingers) returned no gesture", tt.count)
				}
				if ev.Kind != tt.want {
					t.Errorf("Kind = %v, want %v", ev.Kind, tt.want)
				}
				if ev.Count != tt.count {
					t.Errorf("Count = %d, want %d", ev.Count, tt.count)
				}
				if len(ev.Fingers) != tt.count {
					t.Errorf("Fingers = %v, want %d entries", ev.Fingers, tt.count)
				}
				if ev.Confidence < 0 || ev.Confidence > 1 {
					t.Errorf("Confidence = %f, out of [0,1]", ev.Confidence)
				}
				if ev.Handedness != h || ev.SourceID != "s1" || !ev.Timestamp.Equal(now) {
					t.Errorf("metadata not carried through: %+v", ev)
				}
			})
		}
	}
}

func TestClassifyConfidence(t *testing.T) {
	c := NewClassifier(DefaultWeights())

	open, _ := c.Classify(Synthetic(5, Right), "", time.Time{})
	if open.Confidence != 1 {
		t.Errorf("open hand confidence = %f, want clamped 1.0", open.Confidence)
	}

	fist, _ := c.Classify(Synthetic(0, Right), "", time.Time{})
	if fist.Confidence < 0.29 || fist.Confidence > 0.31 {
		t.Errorf("fist confidence = %f, want the fist bonus 0.3", fist.Confidence)
	}

	peace, _ := c.Classify(Synthetic(2, Right), "", time.Time{})
	if peace.Confidence < 0.39 || peace.Confidence > 0.41 {
		t.Errorf("peace confidence = %f, want 0.4", peace.Confidence)
	}
}

func TestClassifyThumbOnlyBelowThreshold(t *testing.T) {
	c := NewClassifier(DefaultWeights())

	hand := Synthetic(0, Right)
	hand.Points[ThumbTip].X = 0.4 // thumb out, every other finger folded

	if ev, ok := c.Classify(hand, "", time.Time{}); ok {
		t.Errorf("thumb alone scores 0.15, want no gesture, got %+v", ev)
	}
}

func TestClassifyLowConfidenceIsNoGesture(t *testing.T) {
	w := DefaultWeights()
	w.Finger = 0.01
	w.Thumb = 0.01
	w.FistBonus = 0.01
	w.OpenHandBonus = 0.01
	c := NewClassifier(w)

	for count := 0; count <= 5; count++ {
		if ev, ok := c.Classify(Synthetic(count, Right), "", time.Time{}); ok {
			t.Errorf("count %d: want no gesture below threshold, got %+v", count, ev)
		}
	}
}

func TestClassifyEpsilon(t *testing.T) {
	c := NewClassifier(DefaultWeights())

	hand := Synthetic(0, Right)
	// Index tip barely above its joint: inside epsilon, not extended.
	hand.Points[IndexTip].Y = hand.Points[IndexPIP].Y - 0.01

	ev, ok := c.Classify(hand, "", time.Time{})
	if !ok || ev.Kind != Fist {
		t.Errorf("want fist when tip is within epsilon, got %+v ok=%v", ev, ok)
	}
}

func TestClassifyDeterministicAndConcurrent(t *testing.T) {
	c := NewClassifier(DefaultWeights())
	hand := Synthetic(3, Left)
	want, _ := c.Classify(hand, "x", time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok := c.Classify(hand, "x", time.Time{})
				if !ok || got.Kind != want.Kind || got.Confidence != want.Confidence {
					t.Errorf("non-deterministic result: %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestEventJSON(t *testing.T) {
	c := NewClassifier(DefaultWeights())
	ev, _ := c.Classify(Synthetic(2, Right), "s", time.Now())

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["name"] != "peace" {
		t.Errorf("name = %v, want peace", decoded["name"])
	}
	if decoded["count"] != float64(2) {
		t.Errorf("count = %v, want 2", decoded["count"])
	}
	if _, ok := decoded["sourceId"]; ok {
		t.Error("source id should not be serialized")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("thumbs_up"); err == nil {
		t.Error("ParseKind accepted an unknown gesture")
	}
	if _, ok := KindForCount(6); ok {
		t.Error("KindForCount(6) should not map")
	}
}
