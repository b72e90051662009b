package tracker

import "sync"

// Point represents the x,y pixel coordinates of a tracked box center
type Point struct {
	X, Y int
}

// Trail keeps a bounded history of box center points per track id, used
// for drawing the path a defect traced through the frame
type Trail struct {
	// size is the maximum number of most recent points kept per track
	size int
	// history of center points keyed by track id
	history map[int][]Point
	sync.Mutex
}

// NewTrail returns a new trail history instance keeping at most size
// points per track
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int][]Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int][]Point)
}

// Add appends a track's current box center to its history, dropping the
// oldest point once the size limit is exceeded
func (t *Trail) Add(id, x, y int) {
	t.Lock()
	defer t.Unlock()

	points := append(t.history[id], Point{X: x, Y: y})

	if len(points) > t.size {
		points = points[1:]
	}

	t.history[id] = points
}

// Points returns the center point history for a specific track id
func (t *Trail) Points(id int) []Point {
	t.Lock()
	defer t.Unlock()

	return t.history[id]
}
