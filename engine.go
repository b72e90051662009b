package damagetrack

import (
	"fmt"
	"sync"

	"github.com/roadsight/damagetrack/dedup"
	"github.com/roadsight/damagetrack/tracker"
)

// Engine is the per-frame road damage tracking pipeline.  One Update call
// per video frame consumes that frame's detections and vehicle position
// and returns the confirmed new damage events.
//
// Frames must be fed in strictly increasing order, the age and hit
// bookkeeping and the dedup ledger are order sensitive.  The engine
// serializes access internally so dashboards may query stats while the
// capture loop updates, but query results are snapshots, never live
// state.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	groups *TypeGroups
	cost   *tracker.CostModel
	ledger *dedup.Ledger

	// active track hypotheses, ordered by creation
	tracks []*tracker.Track
	// nextID is the monotonically increasing track id counter, ids are
	// never reused within a session
	nextID int
	// frameID is the index of the most recently processed frame
	frameID int

	totalDamages int
	byType       map[string]int
}

// NewEngine creates an engine with the given configuration.  The only
// error conditions are invalid configuration values.
func NewEngine(cfg Config) (*Engine, error) {

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ledger, err := dedup.NewLedger(cfg.MinDistanceMeters)

	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	groups := NewTypeGroups(cfg.TypeGroups)

	return &Engine{
		cfg:    cfg,
		groups: groups,
		cost:   tracker.NewCostModel(groups.Compatible),
		ledger: ledger,
		byType: make(map[string]int),
	}, nil
}

// SetFrameSize recalibrates the center distance matching threshold to
// the video frame dimensions.  Recommended before the first frame.
func (e *Engine) SetFrameSize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cost.SetFrameSize(width, height)
}

// Update processes one frame.  An empty detection list is valid, all
// tracks age by one.  The returned events are confirmed new damage
// instances that survived spatial dedup, each physical defect appears at
// most once per session.
//
// The location (0,0) is the reserved "position unavailable" sentinel and
// disables spatial dedup for any track first observed on this frame.
func (e *Engine) Update(detections []Detection, lat, lon float64) ([]DamageEvent, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	e.frameID++

	// advance every track's motion estimate before matching.  Unmatched
	// tracks keep the incremented age.
	for _, t := range e.tracks {
		t.Predict()
	}

	boxes := make([]tracker.Rect, len(detections))
	labels := make([]string, len(detections))

	for i, det := range detections {
		boxes[i] = det.Box
		labels[i] = det.Label
	}

	costs := e.cost.Matrix(e.tracks, boxes, labels)

	matches, _, unmatchedDets, err := tracker.Assign(e.cfg.Strategy, costs,
		len(e.tracks), len(detections), e.cfg.MatchThresh)

	if err != nil {
		return nil, fmt.Errorf("assignment failed on frame %d: %w",
			e.frameID, err)
	}

	var events []DamageEvent

	// matched tracks absorb their detections
	for _, m := range matches {

		t := e.tracks[m[0]]
		det := detections[m[1]]

		if err := t.Update(det.Box, det.Label, det.Confidence,
			e.frameID, lat, lon); err != nil {
			return nil, fmt.Errorf("frame %d: %w", e.frameID, err)
		}

		if ev, ok := e.confirm(t); ok {
			events = append(events, ev)
		}
	}

	// every unmatched detection starts a new track, detections are never
	// silently dropped
	for _, di := range unmatchedDets {

		det := detections[di]

		t := tracker.NewTrack(e.nextID, det.Box, det.Label, det.Confidence,
			e.frameID, lat, lon)
		e.nextID++

		e.tracks = append(e.tracks, t)

		if ev, ok := e.confirm(t); ok {
			events = append(events, ev)
		}
	}

	// retire tracks that have gone unmatched too long, their ids are
	// never reassigned
	live := e.tracks[:0]

	for _, t := range e.tracks {
		if t.Age() <= e.cfg.MaxAge {
			live = append(live, t)
		}
	}

	for i := len(live); i < len(e.tracks); i++ {
		e.tracks[i] = nil
	}

	e.tracks = live

	return events, nil
}

// confirm checks whether the track has reached the minimum hit count and,
// if so, submits it to the dedup ledger.  Returns the damage event when
// the ledger accepts the track as a genuine new defect.  A track is
// confirmed at most once, suppressed tracks are not retried.
func (e *Engine) confirm(t *tracker.Track) (DamageEvent, bool) {

	if t.Confirmed() || t.Hits() < e.cfg.MinHits {
		return DamageEvent{}, false
	}

	t.MarkConfirmed()

	lat, lon := t.FirstLocation()
	group := e.groups.GroupOf(t.Label())

	if !e.ledger.Accept(lat, lon, group, t.ID()) {
		return DamageEvent{}, false
	}

	e.totalDamages++
	e.byType[group]++

	box := t.Rect()

	return DamageEvent{
		TrackID:        t.ID(),
		X1:             box.X(),
		Y1:             box.Y(),
		X2:             box.BRX(),
		Y2:             box.BRY(),
		Label:          t.Label(),
		Group:          group,
		Confidence:     t.Confidence(),
		Lat:            lat,
		Lon:            lon,
		FirstSeenFrame: t.FirstFrame(),
	}, true
}

// Stats returns a snapshot of the engine's queryable state
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	byType := make(map[string]int, len(e.byType))

	for k, v := range e.byType {
		byType[k] = v
	}

	return Stats{
		ActiveTracks:    len(e.tracks),
		TotalDamages:    e.totalDamages,
		ByType:          byType,
		FramesProcessed: e.frameID,
	}
}

// ActiveTracks returns value snapshots of the live track hypotheses,
// taken under the engine lock.  The snapshots share no state with the
// engine, callers may hold them across further Update calls.
func (e *Engine) ActiveTracks() []TrackSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]TrackSnapshot, len(e.tracks))

	for i, t := range e.tracks {
		box := t.Rect()

		out[i] = TrackSnapshot{
			ID:         t.ID(),
			Label:      t.Label(),
			Group:      e.groups.GroupOf(t.Label()),
			Confidence: t.Confidence(),
			Hits:       t.Hits(),
			Age:        t.Age(),
			Confirmed:  t.Confirmed(),
			X1:         box.X(),
			Y1:         box.Y(),
			X2:         box.BRX(),
			Y2:         box.BRY(),
		}
	}

	return out
}

// LedgerEntries returns a copy of the accepted damage locations
func (e *Engine) LedgerEntries() []dedup.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ledger.Entries()
}

// Reset clears all tracks, the id counter, the statistics and the dedup
// ledger in one atomic operation, used when starting a fresh inspection
// session
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tracks = nil
	e.nextID = 0
	e.frameID = 0
	e.totalDamages = 0
	e.byType = make(map[string]int)
	e.ledger.Reset()
}
