package damagetrack

import (
	"fmt"

	"github.com/roadsight/damagetrack/tracker"
)

// Config holds the tunable parameters of the tracking engine
type Config struct {
	// MatchThresh is the maximum acceptable assignment cost for a
	// (track, detection) pair in [0,1]
	MatchThresh float32
	// MaxAge is the number of consecutive missed frames after which a
	// track is removed
	MaxAge int
	// MinHits is the matched detection count at which a track is
	// confirmed as new damage.  1 confirms immediately on creation.
	MinHits int
	// MinDistanceMeters is the minimum separation between two recorded
	// defects of the same type group
	MinDistanceMeters float64
	// Strategy selects the assignment solver
	Strategy tracker.Strategy
	// TypeGroups is the damage type synonym table.  Nil uses
	// DefaultGroupTable.
	TypeGroups map[string][]string
}

// DefaultConfig returns the engine configuration tuned for dashcam
// footage at around 30fps
func DefaultConfig() Config {
	return Config{
		MatchThresh:       0.7,
		MaxAge:            30,
		MinHits:           1,
		MinDistanceMeters: 10.0,
		Strategy:          tracker.StrategyJV,
	}
}

// validate reports configuration errors at construction time.  Anomalies
// during frame processing degrade gracefully instead, a bad frame must
// never halt an inspection session.
func (c Config) validate() error {

	if c.MatchThresh <= 0 || c.MatchThresh > 1 {
		return fmt.Errorf("match threshold must be in (0,1], got %f",
			c.MatchThresh)
	}

	if c.MaxAge <= 0 {
		return fmt.Errorf("max age must be positive, got %d", c.MaxAge)
	}

	if c.MinHits < 1 {
		return fmt.Errorf("min hits must be at least 1, got %d", c.MinHits)
	}

	if c.MinDistanceMeters <= 0 {
		return fmt.Errorf("minimum distance must be positive, got %f",
			c.MinDistanceMeters)
	}

	return nil
}
