package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/roadsight/damagetrack"
	"github.com/roadsight/damagetrack/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *damagetrack.Engine, *store.Store) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	engine, err := damagetrack.NewEngine(damagetrack.DefaultConfig())

	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	db, err := store.NewStore(filepath.Join(t.TempDir(), "api.db"))

	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return SetupRouter(engine, db), engine, db
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestStatsEndpoint(t *testing.T) {

	router, engine, _ := newTestRouter(t)

	// feed a detection so the engine has state to report
	_, err := engine.Update([]damagetrack.Detection{
		damagetrack.NewDetection(100, 100, 160, 150, "D40", 0.9),
	}, -6.9024, 107.6188)

	if err != nil {
		t.Fatalf("engine update failed: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/stats")

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var stats damagetrack.Stats

	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}

	if stats.ActiveTracks != 1 {
		t.Errorf("expected 1 active track, got %d", stats.ActiveTracks)
	}

	if stats.FramesProcessed != 1 {
		t.Errorf("expected 1 frame processed, got %d", stats.FramesProcessed)
	}
}

func TestTracksEndpoint(t *testing.T) {

	router, engine, _ := newTestRouter(t)

	_, err := engine.Update([]damagetrack.Detection{
		damagetrack.NewDetection(100, 100, 160, 150, "D40", 0.9),
	}, -6.9024, 107.6188)

	if err != nil {
		t.Fatalf("engine update failed: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/tracks")

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var body struct {
		Tracks []damagetrack.TrackSnapshot `json:"tracks"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode tracks: %v", err)
	}

	if len(body.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(body.Tracks))
	}

	if body.Tracks[0].Label != "D40" {
		t.Errorf("unexpected track label %s", body.Tracks[0].Label)
	}

	if !body.Tracks[0].Confirmed {
		t.Errorf("track should be confirmed at the default min hits")
	}
}

func TestResetEndpoint(t *testing.T) {

	router, engine, _ := newTestRouter(t)

	_, err := engine.Update([]damagetrack.Detection{
		damagetrack.NewDetection(100, 100, 160, 150, "D40", 0.9),
	}, -6.9024, 107.6188)

	if err != nil {
		t.Fatalf("engine update failed: %v", err)
	}

	w := doRequest(t, router, http.MethodPost, "/api/reset")

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	if engine.Stats().ActiveTracks != 0 {
		t.Errorf("engine should have no tracks after reset")
	}
}

func TestDamagesEndpoint(t *testing.T) {

	router, _, db := newTestRouter(t)

	session, err := db.CreateSession("test.mp4")

	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	_, err = db.SaveEvent(damagetrack.DamageEvent{
		TrackID: 1,
		Label:   "D40",
		Group:   "pothole",
		Lat:     -6.9024,
		Lon:     107.6188,
	}, session, 0, "")

	if err != nil {
		t.Fatalf("failed to save event: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/damages?session="+session)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var body struct {
		Damages []store.Record `json:"damages"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode damages: %v", err)
	}

	if len(body.Damages) != 1 {
		t.Fatalf("expected 1 damage record, got %d", len(body.Damages))
	}

	if body.Damages[0].DamageType != "D40" {
		t.Errorf("unexpected damage type %s", body.Damages[0].DamageType)
	}
}

func TestDamagesBadBounds(t *testing.T) {

	router, _, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet,
		"/api/damages?lat_min=abc&lat_max=1&lon_min=2&lon_max=3")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad bounds, got %d", w.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {

	router, _, db := newTestRouter(t)

	session, err := db.CreateSession("")

	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	_, err = db.SaveEvent(damagetrack.DamageEvent{
		TrackID: 1, Label: "D40", Confidence: 0.9,
	}, session, 0, "")

	if err != nil {
		t.Fatalf("failed to save event: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/summary")

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var sum store.Summary

	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if sum.TotalDamages != 1 {
		t.Errorf("expected 1 total damage, got %d", sum.TotalDamages)
	}

	if sum.BySeverity["high"] != 1 {
		t.Errorf("expected 1 high severity damage")
	}
}
