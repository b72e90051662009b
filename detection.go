package damagetrack

import (
	"github.com/roadsight/damagetrack/tracker"
)

// Detection is one per-frame detector output.  Detections are ephemeral
// inputs, the engine does not retain them between frames.
type Detection struct {
	// Box is the axis aligned bounding box in pixel space
	Box tracker.Rect
	// Label is the raw damage type label from the detector
	Label string
	// Confidence is the detection score in [0,1]
	Confidence float32
}

// NewDetection creates a Detection from (x1,y1,x2,y2) corner coordinates
func NewDetection(x1, y1, x2, y2 float32, label string,
	confidence float32) Detection {

	return Detection{
		Box:        tracker.RectFromCorners(x1, y1, x2, y2),
		Label:      label,
		Confidence: confidence,
	}
}

// DamageEvent is a confirmed new damage instance surfaced to the caller
// exactly once per physical defect
type DamageEvent struct {
	// TrackID is the id of the track that produced this event
	TrackID int `json:"track_id"`
	// Bounding box corners in pixel space at confirmation
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
	// Label is the raw damage type label
	Label string `json:"type"`
	// Group is the damage type group the label resolves to
	Group string `json:"group"`
	// Confidence is the highest detection score seen by the track
	Confidence float32 `json:"conf"`
	// Location recorded at the track's first observation
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// FirstSeenFrame is the frame index at first observation
	FirstSeenFrame int `json:"first_seen_frame"`
}

// TrackSnapshot is a value copy of one live track's state taken under
// the engine lock.  Snapshots never alias engine internals, so they stay
// stable while further frames are processed.
type TrackSnapshot struct {
	// ID is the track id
	ID int `json:"id"`
	// Label is the raw damage type label of the latest matched detection
	Label string `json:"type"`
	// Group is the damage type group the label resolves to
	Group string `json:"group"`
	// Confidence is the highest detection score seen by the track
	Confidence float32 `json:"conf"`
	// Hits is the number of matched detections so far
	Hits int `json:"hits"`
	// Age is the number of frames since the last match
	Age int `json:"age"`
	// Confirmed reports whether the track reached the minimum hit count
	Confirmed bool `json:"confirmed"`
	// Bounding box corners in pixel space at the last match
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// CenterX returns the horizontal center of the snapshot box
func (ts TrackSnapshot) CenterX() float32 {
	return (ts.X1 + ts.X2) / 2
}

// CenterY returns the vertical center of the snapshot box
func (ts TrackSnapshot) CenterY() float32 {
	return (ts.Y1 + ts.Y2) / 2
}

// Stats is a snapshot of the engine's queryable state
type Stats struct {
	// ActiveTracks is the current number of live track hypotheses
	ActiveTracks int `json:"active_tracks"`
	// TotalDamages is the cumulative count of reported damage events
	TotalDamages int `json:"total_unique_damages"`
	// ByType is the cumulative reported damage count per type group
	ByType map[string]int `json:"damage_by_type"`
	// FramesProcessed is the number of frames consumed this session
	FramesProcessed int `json:"frames_processed"`
}
