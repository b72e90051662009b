// Package dedup implements the geospatial ledger used to suppress repeat
// recordings of the same road defect.  Each track the lifecycle manager
// confirms is checked against every previously accepted location of the
// same damage type group, and rejected when it falls within the minimum
// separation distance.
package dedup

import (
	"fmt"

	"github.com/roadsight/damagetrack/geo"
)

// Entry is one accepted damage location.  Entries are append only and are
// never mutated or removed for the lifetime of a session.
type Entry struct {
	// Lat is the latitude recorded at the owning track's first observation
	Lat float64
	// Lon is the longitude recorded at the owning track's first observation
	Lon float64
	// Group is the damage type group, eg: "pothole"
	Group string
	// TrackID is the id of the track that produced this entry
	TrackID int
}

// Ledger holds every damage location accepted during the session
type Ledger struct {
	// minDistance is the minimum separation in meters between two defects
	// of the same type group
	minDistance float64
	// entries is the append only record of accepted locations
	entries []Entry
}

// NewLedger creates a ledger with the given minimum separation distance
// in meters
func NewLedger(minDistanceMeters float64) (*Ledger, error) {

	if minDistanceMeters <= 0 {
		return nil, fmt.Errorf("minimum distance must be positive, got %f",
			minDistanceMeters)
	}

	return &Ledger{
		minDistance: minDistanceMeters,
	}, nil
}

// Accept decides whether the candidate location represents a defect not
// yet recorded on the route.  When accepted the location is appended to
// the ledger and true is returned.  A candidate is rejected when an entry
// of the same type group owned by a different track lies closer than the
// minimum distance.
//
// The sentinel location (0,0) means positioning was unavailable, spatial
// checks are bypassed and the candidate is always accepted.  Sentinel
// entries are still recorded so Len and Entries account for every
// confirmed damage.
func (l *Ledger) Accept(lat, lon float64, group string, trackID int) bool {

	if lat != 0 || lon != 0 {
		for _, e := range l.entries {

			// a track's own first location must never disqualify itself
			if e.TrackID == trackID || e.Group != group {
				continue
			}

			if geo.Haversine(lat, lon, e.Lat, e.Lon) < l.minDistance {
				return false
			}
		}
	}

	l.entries = append(l.entries, Entry{
		Lat:     lat,
		Lon:     lon,
		Group:   group,
		TrackID: trackID,
	})

	return true
}

// Len returns the number of accepted entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the accepted entries for reporting
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears all entries for a fresh inspection session
func (l *Ledger) Reset() {
	l.entries = nil
}
