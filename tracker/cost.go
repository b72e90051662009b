package tracker

import (
	"math"
)

// CompatFunc reports whether two damage type labels are considered
// equivalent for matching.  The engine injects its type group table here.
type CompatFunc func(a, b string) bool

// CostModel computes the matching cost between a track's predicted box
// and a new detection.  Costs for compatible pairs are bounded in [0,1]
// where 0 is a perfect match, incompatible pairs cost IncompatibleCost.
type CostModel struct {
	// Compat gates matching on damage type compatibility
	Compat CompatFunc
	// CenterThresh is the pixel distance at which the normalized center
	// distance cost saturates, derived from the frame diagonal
	CenterThresh float32
}

// DefaultCenterThresh is the center distance saturation used before the
// frame size has been calibrated, sized for a 2000px diagonal
const DefaultCenterThresh = 2000 * 0.08

// IncompatibleCost is the cost assigned to a (track, detection) pair of
// incompatible damage types.  It sits strictly above the [0,1] range of
// admissible match thresholds so the cost ceiling excludes such pairs
// even at a ceiling of 1.0.
const IncompatibleCost float32 = 2.0

// NewCostModel returns a cost model with the given type compatibility
// gate and the default center distance threshold
func NewCostModel(compat CompatFunc) *CostModel {
	return &CostModel{
		Compat:       compat,
		CenterThresh: DefaultCenterThresh,
	}
}

// SetFrameSize recalibrates the center distance threshold to 8% of the
// frame diagonal
func (c *CostModel) SetFrameSize(width, height int) {
	diag := math.Sqrt(float64(width*width + height*height))
	c.CenterThresh = float32(diag * 0.08)
}

// Cost returns the matching cost between a track and a detection box with
// the given label.  Incompatible damage types cost IncompatibleCost and
// are excluded from assignment by the solver's cost ceiling.
//
// When the predicted and detected boxes visibly overlap the IoU term
// dominates.  With little or no overlap, as happens with fast camera
// motion, the center distance term dominates instead since overlap alone
// is unreliable.
func (c *CostModel) Cost(t *Track, box Rect, label string) float32 {

	if c.Compat != nil && !c.Compat(t.Label(), label) {
		return IncompatibleCost
	}

	pred := t.PredictedRect()

	iou := pred.IoU(box)
	iouCost := 1.0 - iou

	distCost := pred.CenterDistance(box) / c.CenterThresh

	if distCost > 1.0 {
		distCost = 1.0
	}

	if iou > 0.1 {
		return 0.6*iouCost + 0.4*distCost
	}

	return 0.3*iouCost + 0.7*distCost
}

// Matrix builds the full cost matrix between a set of tracks and the
// current frame's detection boxes
func (c *CostModel) Matrix(tracks []*Track, boxes []Rect,
	labels []string) [][]float32 {

	if len(tracks) == 0 || len(boxes) == 0 {
		return nil
	}

	costs := make([][]float32, len(tracks))

	for i, t := range tracks {
		costs[i] = make([]float32, len(boxes))

		for j, box := range boxes {
			costs[i][j] = c.Cost(t, box, labels[j])
		}
	}

	return costs
}
