package tracker

import (
	"fmt"
	"sort"
)

// Strategy selects the assignment algorithm.  The choice is made by
// configuration, never probed at runtime, so a given configuration always
// resolves ties the same way.
type Strategy int

const (
	// StrategyJV uses exact minimum cost bipartite matching via the
	// Jonker-Volgenant algorithm
	StrategyJV Strategy = 0
	// StrategyGreedy commits (track, detection) pairs in ascending cost
	// order, intended for very large matrices
	StrategyGreedy Strategy = 1
)

// Assign computes a one-to-one assignment between tracks and detections
// from the given cost matrix.  Pairs whose cost exceeds thresh are never
// matched.  It returns the matched (track, detection) index pairs plus
// the unmatched indices on both sides.
func Assign(strategy Strategy, costs [][]float32, nTracks, nDets int,
	thresh float32) (matches [][2]int, unmatchedTracks, unmatchedDets []int,
	err error) {

	if len(costs) == 0 {
		for i := 0; i < nTracks; i++ {
			unmatchedTracks = append(unmatchedTracks, i)
		}
		for j := 0; j < nDets; j++ {
			unmatchedDets = append(unmatchedDets, j)
		}
		return
	}

	switch strategy {
	case StrategyGreedy:
		matches = assignGreedy(costs, nTracks, nDets, thresh)

	case StrategyJV:
		matches, err = assignJV(costs, nTracks, nDets, thresh)

		if err != nil {
			return nil, nil, nil, err
		}

	default:
		return nil, nil, nil, fmt.Errorf("unknown assignment strategy %d",
			strategy)
	}

	trackUsed := make([]bool, nTracks)
	detUsed := make([]bool, nDets)

	for _, m := range matches {
		trackUsed[m[0]] = true
		detUsed[m[1]] = true
	}

	for i := 0; i < nTracks; i++ {
		if !trackUsed[i] {
			unmatchedTracks = append(unmatchedTracks, i)
		}
	}

	for j := 0; j < nDets; j++ {
		if !detUsed[j] {
			unmatchedDets = append(unmatchedDets, j)
		}
	}

	return
}

// assignJV solves the rectangular problem exactly by extending the cost
// matrix to a square one.  The padding trick prices every real pair
// against thresh/2 dummy pairs so any match costing more than the
// ceiling is rejected by the optimum itself.
func assignJV(costs [][]float32, nTracks, nDets int,
	thresh float32) ([][2]int, error) {

	n := nTracks + nDets
	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			ext[i][j] = float64(thresh) / 2.0
		}
	}

	for i := nTracks; i < n; i++ {
		for j := nDets; j < n; j++ {
			ext[i][j] = 0
		}
	}

	for i := 0; i < nTracks; i++ {
		for j := 0; j < nDets; j++ {
			ext[i][j] = float64(costs[i][j])
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	if err := solveLAP(n, ext, x, y); err != nil {
		return nil, fmt.Errorf("assignment solver failed: %w", err)
	}

	var matches [][2]int

	for i := 0; i < nTracks; i++ {

		j := x[i]

		if j < 0 || j >= nDets {
			continue
		}

		// the padding already prices out pairs above the ceiling, this
		// guards the invariant directly
		if costs[i][j] > thresh {
			continue
		}

		matches = append(matches, [2]int{i, j})
	}

	return matches, nil
}

// assignGreedy sorts all (track, detection) pairs by ascending cost and
// commits them one at a time, skipping claimed rows and columns and
// stopping at the cost ceiling.  Ties break on lowest track then lowest
// detection index.
func assignGreedy(costs [][]float32, nTracks, nDets int,
	thresh float32) [][2]int {

	type pair struct {
		cost float32
		i, j int
	}

	flat := make([]pair, 0, nTracks*nDets)

	for i := 0; i < nTracks; i++ {
		for j := 0; j < nDets; j++ {
			flat = append(flat, pair{costs[i][j], i, j})
		}
	}

	sort.Slice(flat, func(a, b int) bool {
		if flat[a].cost != flat[b].cost {
			return flat[a].cost < flat[b].cost
		}
		if flat[a].i != flat[b].i {
			return flat[a].i < flat[b].i
		}
		return flat[a].j < flat[b].j
	})

	trackUsed := make([]bool, nTracks)
	detUsed := make([]bool, nDets)

	var matches [][2]int

	for _, p := range flat {

		if p.cost > thresh {
			break
		}

		if trackUsed[p.i] || detUsed[p.j] {
			continue
		}

		trackUsed[p.i] = true
		detUsed[p.j] = true
		matches = append(matches, [2]int{p.i, p.j})
	}

	return matches
}
