package dedup

import (
	"testing"
)

// TestLedgerSuppression checks a second defect of the same group within
// the minimum distance is rejected
func TestLedgerSuppression(t *testing.T) {

	l, err := NewLedger(10.0)

	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	if !l.Accept(-6.90240, 107.61880, "pothole", 0) {
		t.Errorf("first location should be accepted")
	}

	// ~3m away, same group, different track
	if l.Accept(-6.90242, 107.61881, "pothole", 1) {
		t.Errorf("nearby duplicate should be suppressed")
	}

	if l.Len() != 1 {
		t.Errorf("expected 1 ledger entry, got %d", l.Len())
	}
}

// TestLedgerIndependence checks defects further apart than the minimum
// distance are both recorded
func TestLedgerIndependence(t *testing.T) {

	l, _ := NewLedger(10.0)

	if !l.Accept(-6.90240, 107.61880, "pothole", 0) {
		t.Errorf("first location should be accepted")
	}

	// ~150m away
	if !l.Accept(-6.90340, 107.61970, "pothole", 1) {
		t.Errorf("distant defect should be accepted")
	}

	if l.Len() != 2 {
		t.Errorf("expected 2 ledger entries, got %d", l.Len())
	}
}

// TestLedgerTypeGroups checks different type groups never suppress each
// other regardless of distance
func TestLedgerTypeGroups(t *testing.T) {

	l, _ := NewLedger(10.0)

	l.Accept(-6.90240, 107.61880, "pothole", 0)

	if !l.Accept(-6.90240, 107.61880, "alligator", 1) {
		t.Errorf("different type group at same location should be accepted")
	}
}

// TestLedgerOwnerExclusion checks a track's own entry does not suppress it
func TestLedgerOwnerExclusion(t *testing.T) {

	l, _ := NewLedger(10.0)

	l.Accept(-6.90240, 107.61880, "pothole", 7)

	// same track id resubmitted at the same spot
	if !l.Accept(-6.90240, 107.61880, "pothole", 7) {
		t.Errorf("a track must never be suppressed by its own entry")
	}
}

// TestLedgerUnknownLocation checks the (0,0) sentinel bypasses spatial
// checks while still recording the confirmed damage
func TestLedgerUnknownLocation(t *testing.T) {

	l, _ := NewLedger(10.0)

	if !l.Accept(0, 0, "pothole", 0) {
		t.Errorf("sentinel location should always be accepted")
	}

	if !l.Accept(0, 0, "pothole", 1) {
		t.Errorf("sentinel location should always be accepted")
	}

	// sentinel acceptances count toward the session record
	if l.Len() != 2 {
		t.Errorf("expected 2 ledger entries, got %d", l.Len())
	}

	// recorded sentinels never suppress a later real location
	if !l.Accept(-6.90240, 107.61880, "pothole", 2) {
		t.Errorf("real location should be accepted after sentinel entries")
	}

	if l.Len() != 3 {
		t.Errorf("expected 3 ledger entries, got %d", l.Len())
	}
}

// TestLedgerReset checks a previously suppressed location is reportable
// again after reset
func TestLedgerReset(t *testing.T) {

	l, _ := NewLedger(10.0)

	l.Accept(-6.90240, 107.61880, "pothole", 0)
	l.Reset()

	if l.Len() != 0 {
		t.Errorf("expected empty ledger after reset, got %d", l.Len())
	}

	if !l.Accept(-6.90240, 107.61880, "pothole", 1) {
		t.Errorf("location should be reportable again after reset")
	}
}

// TestLedgerInvalidDistance checks construction fails on a non-positive
// threshold
func TestLedgerInvalidDistance(t *testing.T) {

	if _, err := NewLedger(0); err == nil {
		t.Errorf("expected error for zero minimum distance")
	}

	if _, err := NewLedger(-5); err == nil {
		t.Errorf("expected error for negative minimum distance")
	}
}
