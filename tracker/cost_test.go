package tracker

import (
	"testing"
)

// sameLabel is a compat gate requiring identical labels
func sameLabel(a, b string) bool {
	return a == b
}

// TestCostTypeGate checks incompatible damage types cost strictly more
// than the highest admissible match threshold, so the ceiling excludes
// them even when configured at 1.0
func TestCostTypeGate(t *testing.T) {

	cm := NewCostModel(sameLabel)

	track := NewTrack(0, NewRect(10, 10, 40, 40), "pothole", 0.9, 1, 0, 0)
	track.Predict()

	// identical box but different type
	if got := cm.Cost(track, NewRect(10, 10, 40, 40), "alligator"); got != IncompatibleCost {
		t.Errorf("incompatible types expected cost %v, got %v",
			IncompatibleCost, got)
	}

	if IncompatibleCost <= 1.0 {
		t.Errorf("incompatible cost %v must exceed the maximum threshold 1.0",
			IncompatibleCost)
	}

	if got := cm.Cost(track, NewRect(10, 10, 40, 40), "pothole"); got >= 1.0 {
		t.Errorf("compatible identical box expected low cost, got %v", got)
	}
}

// TestTypeGateAtUnitCeiling checks an incompatible pair is rejected by
// both solvers at the maximum match threshold of 1.0
func TestTypeGateAtUnitCeiling(t *testing.T) {

	cm := NewCostModel(sameLabel)

	track := NewTrack(0, NewRect(10, 10, 40, 40), "pothole", 0.9, 1, 0, 0)
	track.Predict()

	costs := cm.Matrix([]*Track{track},
		[]Rect{NewRect(10, 10, 40, 40)}, []string{"alligator"})

	for _, strategy := range []Strategy{StrategyJV, StrategyGreedy} {

		matches, _, unmatchedDets, err := Assign(strategy, costs, 1, 1, 1.0)

		if err != nil {
			t.Fatalf("strategy %d: assignment failed: %v", strategy, err)
		}

		if len(matches) != 0 {
			t.Errorf("strategy %d: incompatible pair must not match at ceiling 1.0",
				strategy)
		}

		if len(unmatchedDets) != 1 {
			t.Errorf("strategy %d: expected detection unmatched, got %v",
				strategy, unmatchedDets)
		}
	}
}

// TestCostBlending checks the IoU weighted blend applies when boxes
// overlap and the distance weighted blend when they do not
func TestCostBlending(t *testing.T) {

	cm := NewCostModel(sameLabel)
	cm.CenterThresh = 100

	track := NewTrack(0, NewRect(0, 0, 100, 100), "pothole", 0.9, 1, 0, 0)
	track.Predict()

	pred := track.PredictedRect()

	// overlapping detection, shifted 10px right
	overlap := NewRect(10, 0, 100, 100)
	iou := pred.IoU(overlap)

	if iou <= 0.1 {
		t.Fatalf("fixture expects visible overlap, got IoU %v", iou)
	}

	dist := pred.CenterDistance(overlap) / cm.CenterThresh
	want := 0.6*(1.0-iou) + 0.4*dist

	if got := cm.Cost(track, overlap, "pothole"); !almostEqual(got, want, 1e-4) {
		t.Errorf("expected overlap blend %v, got %v", want, got)
	}

	// distant detection, no overlap: distance term dominates
	far := NewRect(150, 0, 100, 100)
	distFar := pred.CenterDistance(far) / cm.CenterThresh

	if distFar > 1.0 {
		distFar = 1.0
	}

	wantFar := float32(0.3*1.0) + 0.7*distFar

	if got := cm.Cost(track, far, "pothole"); !almostEqual(got, wantFar, 1e-4) {
		t.Errorf("expected no-overlap blend %v, got %v", wantFar, got)
	}
}

// TestCostBounds checks costs stay within [0,1] even for extreme boxes
func TestCostBounds(t *testing.T) {

	cm := NewCostModel(sameLabel)

	track := NewTrack(0, NewRect(0, 0, 10, 10), "pothole", 0.9, 1, 0, 0)
	track.Predict()

	boxes := []Rect{
		NewRect(0, 0, 10, 10),
		NewRect(5000, 5000, 10, 10),
		NewRect(0, 0, 0, 0),
	}

	for _, box := range boxes {
		got := cm.Cost(track, box, "pothole")

		if got < 0 || got > 1.0 {
			t.Errorf("cost out of bounds for box %+v: %v", box, got)
		}
	}
}

// TestCostSetFrameSize checks the center threshold recalibrates to 8% of
// the frame diagonal
func TestCostSetFrameSize(t *testing.T) {

	cm := NewCostModel(sameLabel)
	cm.SetFrameSize(1920, 1080)

	// diagonal of 1920x1080 is ~2202.9
	if !almostEqual(cm.CenterThresh, 2202.9072*0.08, 1e-2) {
		t.Errorf("expected threshold %v, got %v",
			2202.9072*0.08, cm.CenterThresh)
	}
}
