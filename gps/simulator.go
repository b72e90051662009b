package gps

import (
	"math"
	"math/rand"
)

// Simulator is a deterministic random-walk position source used when no
// recorded track is available.  It drifts from a start coordinate at
// roughly urban driving speed, seeded so replays are reproducible.
type Simulator struct {
	lat, lon float64
	rng      *rand.Rand
}

// NewSimulator creates a simulator starting at the given coordinate
func NewSimulator(startLat, startLon float64, seed int64) *Simulator {
	return &Simulator{
		lat: startLat,
		lon: startLon,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Position advances the walk one step per call and returns the new fix.
// Frame arguments are ignored, the simulation is purely sequential.
func (s *Simulator) Position(frame, totalFrames int) Point {

	// ~0.3-0.6m per frame at 30fps is 10-20km/h
	step := 3e-6 + s.rng.Float64()*3e-6
	heading := s.rng.Float64() * 2 * math.Pi

	s.lat += step * math.Sin(heading)
	s.lon += step * math.Cos(heading)

	return Point{Lat: s.lat, Lon: s.lon}
}

// ManualRoute interpolates linearly between a start and end coordinate
// over the session length, for routes entered by hand
type ManualRoute struct {
	start, end Point
}

// NewManualRoute creates a route between two coordinates
func NewManualRoute(startLat, startLon, endLat, endLon float64) *ManualRoute {
	return &ManualRoute{
		start: Point{Lat: startLat, Lon: startLon},
		end:   Point{Lat: endLat, Lon: endLon},
	}
}

// Position returns the interpolated location for the given frame
func (m *ManualRoute) Position(frame, totalFrames int) Point {
	return interpolate([]Point{m.start, m.end}, frame, totalFrames)
}

// Fixed always returns the same coordinate, used for stationary tests
// and as a stand in for a live fix pushed from elsewhere
type Fixed struct {
	point Point
}

// NewFixed creates a source pinned to one coordinate
func NewFixed(lat, lon float64) *Fixed {
	return &Fixed{point: Point{Lat: lat, Lon: lon}}
}

// Set moves the fixed coordinate, eg: when a live position update
// arrives from an external receiver
func (f *Fixed) Set(lat, lon float64) {
	f.point = Point{Lat: lat, Lon: lon}
}

// Position returns the current coordinate
func (f *Fixed) Position(frame, totalFrames int) Point {
	return f.point
}
