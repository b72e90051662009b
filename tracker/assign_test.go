package tracker

import (
	"testing"
)

// checkDisjoint verifies no track or detection index appears twice
func checkDisjoint(t *testing.T, matches [][2]int) {
	t.Helper()

	tracks := make(map[int]bool)
	dets := make(map[int]bool)

	for _, m := range matches {
		if tracks[m[0]] {
			t.Errorf("track %d matched twice", m[0])
		}
		if dets[m[1]] {
			t.Errorf("detection %d matched twice", m[1])
		}
		tracks[m[0]] = true
		dets[m[1]] = true
	}
}

// TestAssignJVOptimal checks the exact solver finds the globally minimal
// assignment where greedy commits to a locally cheapest pair
func TestAssignJVOptimal(t *testing.T) {

	// greedy takes (0,0)=0.1 forcing (1,1)=0.6, total 0.7
	// optimum is (0,1)+(1,0) = 0.2+0.2 = 0.4
	costs := [][]float32{
		{0.1, 0.2},
		{0.2, 0.6},
	}

	matches, unTracks, unDets, err := Assign(StrategyJV, costs, 2, 2, 0.7)

	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	checkDisjoint(t, matches)

	if len(matches) != 2 || len(unTracks) != 0 || len(unDets) != 0 {
		t.Fatalf("expected full assignment, got %v", matches)
	}

	var total float32
	for _, m := range matches {
		total += costs[m[0]][m[1]]
	}

	if !almostEqual(total, 0.4, 1e-5) {
		t.Errorf("expected optimal total 0.4, got %v", total)
	}
}

// TestAssignGreedy checks the greedy strategy commits pairs in ascending
// cost order and skips claimed indices
func TestAssignGreedy(t *testing.T) {

	costs := [][]float32{
		{0.1, 0.2},
		{0.2, 0.6},
	}

	matches, unTracks, unDets, err := Assign(StrategyGreedy, costs, 2, 2, 0.5)

	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	checkDisjoint(t, matches)

	// greedy takes (0,0) first, then (1,1) is over the ceiling
	if len(matches) != 1 || matches[0] != [2]int{0, 0} {
		t.Errorf("expected single match (0,0), got %v", matches)
	}

	if len(unTracks) != 1 || unTracks[0] != 1 {
		t.Errorf("expected track 1 unmatched, got %v", unTracks)
	}

	if len(unDets) != 1 || unDets[0] != 1 {
		t.Errorf("expected detection 1 unmatched, got %v", unDets)
	}
}

// TestAssignCostCeiling checks both strategies refuse pairs above the
// threshold
func TestAssignCostCeiling(t *testing.T) {

	costs := [][]float32{
		{0.9},
	}

	for _, strategy := range []Strategy{StrategyJV, StrategyGreedy} {

		matches, unTracks, unDets, err := Assign(strategy, costs, 1, 1, 0.7)

		if err != nil {
			t.Fatalf("strategy %d: assign failed: %v", strategy, err)
		}

		if len(matches) != 0 {
			t.Errorf("strategy %d: pair above ceiling was matched", strategy)
		}

		if len(unTracks) != 1 || len(unDets) != 1 {
			t.Errorf("strategy %d: expected both sides unmatched", strategy)
		}
	}
}

// TestAssignRectangular checks rectangular matrices leave the surplus
// side unmatched
func TestAssignRectangular(t *testing.T) {

	// 1 track, 3 detections
	costs := [][]float32{
		{0.5, 0.05, 0.3},
	}

	matches, unTracks, unDets, err := Assign(StrategyJV, costs, 1, 3, 0.7)

	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if len(matches) != 1 || matches[0] != [2]int{0, 1} {
		t.Errorf("expected match (0,1), got %v", matches)
	}

	if len(unTracks) != 0 {
		t.Errorf("expected no unmatched tracks, got %v", unTracks)
	}

	if len(unDets) != 2 {
		t.Errorf("expected 2 unmatched detections, got %v", unDets)
	}
}

// TestAssignEmpty checks the empty matrix path returns all indices
// unmatched
func TestAssignEmpty(t *testing.T) {

	matches, unTracks, unDets, err := Assign(StrategyJV, nil, 3, 0, 0.7)

	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if len(matches) != 0 || len(unTracks) != 3 || len(unDets) != 0 {
		t.Errorf("expected 3 unmatched tracks, got %v %v %v",
			matches, unTracks, unDets)
	}
}
