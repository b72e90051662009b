package tracker

import (
	"math"
)

// epsilon is the smallest denominator allowed in ratio and area
// computations so degenerate boxes never cause a division by zero
const epsilon = 1e-6

// Xyar (center x, center y, area, aspect ratio) represents a bounding box
// in the measurement space used by the motion filter
type Xyar []float32

// Rect is an axis aligned bounding box in pixel space stored as
// top-left corner plus width and height
type Rect struct {
	x, y, w, h float32
}

// NewRect creates a new Rect from a top-left corner, width and height
func NewRect(x, y, width, height float32) Rect {
	return Rect{x: x, y: y, w: width, h: height}
}

// RectFromCorners creates a Rect from (x1,y1,x2,y2) corner coordinates as
// produced by the detector.  Negative extents are clamped to zero.
func RectFromCorners(x1, y1, x2, y2 float32) Rect {

	w := x2 - x1
	h := y2 - y1

	if w < 0 {
		w = 0
	}

	if h < 0 {
		h = 0
	}

	return Rect{x: x1, y: y1, w: w, h: h}
}

// X returns the top-left x coordinate
func (r Rect) X() float32 {
	return r.x
}

// Y returns the top-left y coordinate
func (r Rect) Y() float32 {
	return r.y
}

// Width returns the box width
func (r Rect) Width() float32 {
	return r.w
}

// Height returns the box height
func (r Rect) Height() float32 {
	return r.h
}

// BRX returns the bottom-right x coordinate
func (r Rect) BRX() float32 {
	return r.x + r.w
}

// BRY returns the bottom-right y coordinate
func (r Rect) BRY() float32 {
	return r.y + r.h
}

// CenterX returns the x coordinate of the box center
func (r Rect) CenterX() float32 {
	return r.x + r.w/2
}

// CenterY returns the y coordinate of the box center
func (r Rect) CenterY() float32 {
	return r.y + r.h/2
}

// Xyar converts the box to (center x, center y, area, aspect ratio)
// measurement space.  The height denominator is clamped so zero-height
// boxes produce a finite ratio.
func (r Rect) Xyar() Xyar {

	h := r.h

	if h < 1 {
		h = 1
	}

	return Xyar{
		r.x + r.w/2,
		r.y + r.h/2,
		r.w * r.h,
		r.w / h,
	}
}

// RectFromXyar converts a measurement space box back to a pixel Rect
func RectFromXyar(m Xyar) Rect {

	area := float64(m[2])
	ratio := float64(m[3])

	w := math.Sqrt(math.Max(area*ratio, 1))
	h := math.Max(area/w, 1)

	return NewRect(
		m[0]-float32(w)/2,
		m[1]-float32(h)/2,
		float32(w),
		float32(h),
	)
}

// IoU returns the intersection over union between this box and another.
// The union denominator is clamped to epsilon so degenerate boxes return
// zero instead of dividing by zero.
func (r Rect) IoU(other Rect) float32 {

	ix1 := float32(math.Max(float64(r.x), float64(other.x)))
	iy1 := float32(math.Max(float64(r.y), float64(other.y)))
	ix2 := float32(math.Min(float64(r.BRX()), float64(other.BRX())))
	iy2 := float32(math.Min(float64(r.BRY()), float64(other.BRY())))

	iw := ix2 - ix1
	ih := iy2 - iy1

	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := r.w*r.h + other.w*other.h - inter

	if union < epsilon {
		union = epsilon
	}

	return inter / union
}

// CenterDistance returns the euclidean distance in pixels between the
// centers of two boxes
func (r Rect) CenterDistance(other Rect) float32 {

	dx := float64(r.CenterX() - other.CenterX())
	dy := float64(r.CenterY() - other.CenterY())

	return float32(math.Sqrt(dx*dx + dy*dy))
}
