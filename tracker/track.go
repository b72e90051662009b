package tracker

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Track is a persistent hypothesis representing one physical road defect,
// updated over consecutive frames
type Track struct {
	// Kalman filter used for motion prediction
	kalmanFilter *KalmanFilter
	// Mean state vector
	mean StateMean
	// Covariance matrix
	covariance StateCov
	// Bounding box from the most recent matched detection
	rect Rect
	// Unique id for the track, assigned once and never reused
	trackID int
	// Damage type label of the most recent matched detection
	label string
	// Highest confidence seen over the track's life
	confidence float32
	// Cumulative number of matched detections
	hits int
	// Consecutive frames since the last matched detection
	age int
	// Frame index at first observation, immutable after creation
	firstFrame int
	// Frame index of the most recent observation
	lastFrame int
	// Location recorded at first observation, authoritative for dedup
	firstLat, firstLon float64
	// Location at the most recent observation
	lastLat, lastLon float64
	// Whether this track has already produced a new damage event
	confirmed bool
}

// NewTrack creates a track from an unmatched detection.  The first
// observation frame and location are fixed for the track's lifetime.
func NewTrack(trackID int, box Rect, label string, confidence float32,
	frameID int, lat, lon float64) *Track {

	t := &Track{
		kalmanFilter: NewKalmanFilter(0.1, 1.0),
		mean:         make(StateMean, 8),
		covariance:   StateCov{mat.NewDense(8, 8, nil)},
		rect:         box,
		trackID:      trackID,
		label:        label,
		confidence:   confidence,
		hits:         1,
		firstFrame:   frameID,
		lastFrame:    frameID,
		firstLat:     lat,
		firstLon:     lon,
		lastLat:      lat,
		lastLon:      lon,
	}

	t.kalmanFilter.Initiate(t.mean, &t.covariance, box.Xyar())

	return t
}

// ID returns the unique track id
func (t *Track) ID() int {
	return t.trackID
}

// Rect returns the bounding box from the most recent matched detection
func (t *Track) Rect() Rect {
	return t.rect
}

// Label returns the damage type label of the most recent matched detection
func (t *Track) Label() string {
	return t.label
}

// Confidence returns the highest detection confidence seen by this track
func (t *Track) Confidence() float32 {
	return t.confidence
}

// Hits returns the cumulative matched detection count
func (t *Track) Hits() int {
	return t.hits
}

// Age returns the number of consecutive frames without a match
func (t *Track) Age() int {
	return t.age
}

// FirstFrame returns the frame index at first observation
func (t *Track) FirstFrame() int {
	return t.firstFrame
}

// LastFrame returns the frame index of the most recent observation
func (t *Track) LastFrame() int {
	return t.lastFrame
}

// FirstLocation returns the location recorded at first observation
func (t *Track) FirstLocation() (lat, lon float64) {
	return t.firstLat, t.firstLon
}

// LastLocation returns the location at the most recent observation
func (t *Track) LastLocation() (lat, lon float64) {
	return t.lastLat, t.lastLon
}

// Confirmed returns whether the track has produced a new damage event
func (t *Track) Confirmed() bool {
	return t.confirmed
}

// MarkConfirmed flags the track as having produced its new damage event.
// A track is confirmed at most once.
func (t *Track) MarkConfirmed() {
	t.confirmed = true
}

// Predict advances the motion state one frame.  The age counter
// increments by one per prediction without a matching update.
func (t *Track) Predict() {
	t.kalmanFilter.Predict(t.mean, &t.covariance)
	t.age++
}

// PredictedRect returns the expected bounding box for the current frame
// derived from the predicted state
func (t *Track) PredictedRect() Rect {
	return RectFromXyar(Xyar(t.mean[:4]))
}

// Update absorbs a matched detection, correcting the motion estimate and
// refreshing the track bookkeeping
func (t *Track) Update(box Rect, label string, confidence float32,
	frameID int, lat, lon float64) error {

	if err := t.kalmanFilter.Update(t.mean, &t.covariance, box.Xyar()); err != nil {
		return fmt.Errorf("error updating track %d: %w", t.trackID, err)
	}

	t.rect = box
	t.label = label

	if confidence > t.confidence {
		t.confidence = confidence
	}

	t.hits++
	t.age = 0
	t.lastFrame = frameID
	t.lastLat = lat
	t.lastLon = lon

	return nil
}
