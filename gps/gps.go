// Package gps supplies a vehicle position for each processed frame.  A
// Source abstracts where positions come from: a deterministic simulation,
// a recorded CSV or GPX track interpolated over the session length, or a
// manually entered start/end route.
package gps

import (
	"github.com/roadsight/damagetrack/geo"
)

// Point is a single positioning fix
type Point struct {
	// Latitude in degrees
	Lat float64
	// Longitude in degrees
	Lon float64
	// Elevation in meters, zero when the source has none
	Elevation float64
	// Timestamp in seconds from the start of the recording, zero when
	// the source has none
	Timestamp float64
}

// Unknown is the reserved sentinel returned when no position is
// available.  The tracking engine bypasses spatial dedup for it.
var Unknown = Point{}

// IsUnknown reports whether the point is the position-unavailable
// sentinel
func (p Point) IsUnknown() bool {
	return p.Lat == 0 && p.Lon == 0
}

// Source yields a position for a given frame of the session
type Source interface {
	// Position returns the vehicle location for the given frame index
	// out of totalFrames.  Sources backed by a recorded track
	// interpolate along it, totalFrames <= 0 means the session length is
	// unknown and the source advances one fix per call.
	Position(frame, totalFrames int) Point
}

// interpolate maps a frame index onto a recorded list of fixes and
// linearly blends between the two neighbouring points
func interpolate(points []Point, frame, totalFrames int) Point {

	if len(points) == 0 {
		return Unknown
	}

	if len(points) == 1 || totalFrames <= 1 {
		return points[0]
	}

	if frame < 0 {
		frame = 0
	}

	if frame >= totalFrames {
		frame = totalFrames - 1
	}

	pos := float64(frame) / float64(totalFrames-1) * float64(len(points)-1)
	i := int(pos)

	if i >= len(points)-1 {
		return points[len(points)-1]
	}

	frac := pos - float64(i)
	a, b := points[i], points[i+1]

	return Point{
		Lat:       a.Lat + (b.Lat-a.Lat)*frac,
		Lon:       a.Lon + (b.Lon-a.Lon)*frac,
		Elevation: a.Elevation + (b.Elevation-a.Elevation)*frac,
		Timestamp: a.Timestamp + (b.Timestamp-a.Timestamp)*frac,
	}
}

// Odometer accumulates the distance travelled over successive fixes
type Odometer struct {
	prev     Point
	hasPrev  bool
	distance float64
}

// Observe feeds the next fix.  Unknown sentinel fixes are skipped so a
// positioning dropout does not produce a distance jump to (0,0).
func (o *Odometer) Observe(p Point) {

	if p.IsUnknown() {
		return
	}

	if o.hasPrev {
		o.distance += geo.Haversine(o.prev.Lat, o.prev.Lon, p.Lat, p.Lon)
	}

	o.prev = p
	o.hasPrev = true
}

// TotalMeters returns the accumulated route distance in meters
func (o *Odometer) TotalMeters() float64 {
	return o.distance
}

// Reset clears the accumulated distance
func (o *Odometer) Reset() {
	o.prev = Point{}
	o.hasPrev = false
	o.distance = 0
}
