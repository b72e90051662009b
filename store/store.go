// Package store persists confirmed road damage to SQLite.  Records are
// grouped into inspection sessions so a survey run can be summarised and
// exported after the fact.
package store

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/roadsight/damagetrack"
)

// Record is one persisted damage observation
type Record struct {
	ID         int64   `json:"id"`
	TrackID    int     `json:"track_id"`
	SessionID  string  `json:"session_id"`
	Timestamp  float64 `json:"timestamp"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DamageType string  `json:"damage_type"`
	Confidence float32 `json:"confidence"`
	ImagePath  string  `json:"image_path"`
	// BBox is the JSON encoded [x1, y1, x2, y2] of the detection
	BBox      string `json:"bbox"`
	CreatedAt string `json:"created_at"`
	Severity  string `json:"severity"`
}

// Session is one inspection run
type Session struct {
	ID              string  `json:"id"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	VideoSource     string  `json:"video_source"`
	TotalDamages    int     `json:"total_damages"`
	TotalDistanceKM float64 `json:"total_distance_km"`
	Status          string  `json:"status"`
}

// Summary aggregates counts over the whole database
type Summary struct {
	TotalDamages  int            `json:"total_damages"`
	ByType        map[string]int `json:"by_type"`
	BySeverity    map[string]int `json:"by_severity"`
	TotalSessions int            `json:"total_sessions"`
}

// Store wraps the SQLite handle
type Store struct {
	*sql.DB
}

// NewStore opens or creates the damage database at path
func NewStore(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS damages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			timestamp REAL DEFAULT 0,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			damage_type TEXT NOT NULL,
			confidence REAL DEFAULT 0,
			image_path TEXT DEFAULT '',
			bbox TEXT DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			severity TEXT DEFAULT 'medium'
		);
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT DEFAULT '',
			video_source TEXT DEFAULT '',
			total_damages INTEGER DEFAULT 0,
			total_distance_km REAL DEFAULT 0,
			status TEXT DEFAULT 'in_progress'
		);
		CREATE INDEX IF NOT EXISTS idx_damages_session ON damages(session_id);
		CREATE INDEX IF NOT EXISTS idx_damages_type ON damages(damage_type);
		CREATE INDEX IF NOT EXISTS idx_damages_location ON damages(latitude, longitude);
	`)

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db}, nil
}

// CreateSession opens a new inspection session and returns its id
func (s *Store) CreateSession(videoSource string) (string, error) {

	id := fmt.Sprintf("session_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:6])

	_, err := s.Exec(`
		INSERT INTO sessions (id, start_time, video_source, status)
		VALUES (?, ?, ?, 'in_progress')`,
		id, time.Now().Format(time.RFC3339), videoSource)

	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

// EndSession closes an inspection session, recording its final damage
// count and route distance
func (s *Store) EndSession(sessionID string, distanceKM float64) error {

	var total int

	err := s.QueryRow("SELECT COUNT(*) FROM damages WHERE session_id = ?",
		sessionID).Scan(&total)

	if err != nil {
		return fmt.Errorf("failed to count session damages: %w", err)
	}

	_, err = s.Exec(`
		UPDATE sessions
		SET end_time = ?, total_damages = ?, total_distance_km = ?,
			status = 'completed'
		WHERE id = ?`,
		time.Now().Format(time.RFC3339), total, distanceKM, sessionID)

	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

// SaveEvent persists a confirmed damage event under the given session
// and returns the new record id.  imagePath may be empty when no
// evidence frame was captured.
func (s *Store) SaveEvent(evt damagetrack.DamageEvent, sessionID string,
	timestamp float64, imagePath string) (int64, error) {

	bbox, err := json.Marshal([4]float32{evt.X1, evt.Y1, evt.X2, evt.Y2})

	if err != nil {
		return 0, fmt.Errorf("failed to encode bbox: %w", err)
	}

	res, err := s.Exec(`
		INSERT INTO damages (
			track_id, session_id, timestamp, latitude, longitude,
			damage_type, confidence, image_path, bbox, severity
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.TrackID, sessionID, timestamp, evt.Lat, evt.Lon,
		evt.Label, evt.Confidence, imagePath, string(bbox),
		Severity(evt.Label, evt.Confidence))

	if err != nil {
		return 0, fmt.Errorf("failed to insert damage: %w", err)
	}

	return res.LastInsertId()
}

// highSeverityTypes are the damage classes treated as structurally
// serious regardless of detector confidence
var highSeverityTypes = []string{"d40", "pothole", "d20", "alligator"}

// Severity grades a damage observation from its type and detector
// confidence
func Severity(damageType string, confidence float32) string {

	lower := strings.ToLower(damageType)

	for _, t := range highSeverityTypes {
		if strings.Contains(lower, t) {

			if confidence > 0.7 {
				return "high"
			}

			return "medium"
		}
	}

	if confidence > 0.8 {
		return "medium"
	}

	return "low"
}

// BySession returns all damage records of one session in timestamp order
func (s *Store) BySession(sessionID string) ([]Record, error) {
	return s.queryRecords(`
		SELECT id, track_id, session_id, timestamp, latitude, longitude,
			damage_type, confidence, image_path, bbox, created_at, severity
		FROM damages WHERE session_id = ? ORDER BY timestamp`,
		sessionID)
}

// All returns damage records across all sessions, newest first
func (s *Store) All(limit, offset int) ([]Record, error) {
	return s.queryRecords(`
		SELECT id, track_id, session_id, timestamp, latitude, longitude,
			damage_type, confidence, image_path, bbox, created_at, severity
		FROM damages ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
}

// InArea returns damage records inside the given bounding box
func (s *Store) InArea(latMin, latMax, lonMin, lonMax float64) ([]Record, error) {
	return s.queryRecords(`
		SELECT id, track_id, session_id, timestamp, latitude, longitude,
			damage_type, confidence, image_path, bbox, created_at, severity
		FROM damages
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY created_at DESC`,
		latMin, latMax, lonMin, lonMax)
}

// ByType returns damage records whose type contains the given label
func (s *Store) ByType(damageType string) ([]Record, error) {
	return s.queryRecords(`
		SELECT id, track_id, session_id, timestamp, latitude, longitude,
			damage_type, confidence, image_path, bbox, created_at, severity
		FROM damages WHERE damage_type LIKE ? ORDER BY created_at DESC`,
		"%"+damageType+"%")
}

func (s *Store) queryRecords(query string, args ...any) ([]Record, error) {

	rows, err := s.Query(query, args...)

	if err != nil {
		return nil, fmt.Errorf("damage query failed: %w", err)
	}

	defer rows.Close()

	var records []Record

	for rows.Next() {
		var r Record

		err := rows.Scan(&r.ID, &r.TrackID, &r.SessionID, &r.Timestamp,
			&r.Latitude, &r.Longitude, &r.DamageType, &r.Confidence,
			&r.ImagePath, &r.BBox, &r.CreatedAt, &r.Severity)

		if err != nil {
			return nil, fmt.Errorf("failed to scan damage row: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Sessions returns all inspection sessions, newest first
func (s *Store) Sessions() ([]Session, error) {

	rows, err := s.Query(`
		SELECT id, start_time, end_time, video_source, total_damages,
			total_distance_km, status
		FROM sessions ORDER BY start_time DESC`)

	if err != nil {
		return nil, fmt.Errorf("session query failed: %w", err)
	}

	defer rows.Close()

	var sessions []Session

	for rows.Next() {
		var sess Session

		err := rows.Scan(&sess.ID, &sess.StartTime, &sess.EndTime,
			&sess.VideoSource, &sess.TotalDamages, &sess.TotalDistanceKM,
			&sess.Status)

		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Summarize aggregates counts by type and severity across the database
func (s *Store) Summarize() (Summary, error) {

	sum := Summary{
		ByType:     make(map[string]int),
		BySeverity: make(map[string]int),
	}

	err := s.QueryRow("SELECT COUNT(*) FROM damages").Scan(&sum.TotalDamages)

	if err != nil {
		return sum, fmt.Errorf("failed to count damages: %w", err)
	}

	err = s.countsInto(sum.ByType,
		"SELECT damage_type, COUNT(*) FROM damages GROUP BY damage_type")

	if err != nil {
		return sum, err
	}

	err = s.countsInto(sum.BySeverity,
		"SELECT severity, COUNT(*) FROM damages GROUP BY severity")

	if err != nil {
		return sum, err
	}

	err = s.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&sum.TotalSessions)

	if err != nil {
		return sum, fmt.Errorf("failed to count sessions: %w", err)
	}

	return sum, nil
}

func (s *Store) countsInto(dest map[string]int, query string) error {

	rows, err := s.Query(query)

	if err != nil {
		return fmt.Errorf("count query failed: %w", err)
	}

	defer rows.Close()

	for rows.Next() {
		var key string
		var count int

		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count row: %w", err)
		}

		dest[key] = count
	}

	return rows.Err()
}

// DeleteSession removes an inspection session and all of its damage
// records.  Evidence images referenced by the records are removed from
// disk as well.
func (s *Store) DeleteSession(sessionID string) error {

	rows, err := s.Query(
		"SELECT image_path FROM damages WHERE session_id = ?", sessionID)

	if err != nil {
		return fmt.Errorf("evidence query failed: %w", err)
	}

	var paths []string

	for rows.Next() {
		var p string

		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}

		if p != "" {
			paths = append(paths, p)
		}
	}

	// an iteration failure must abort before any rows are deleted, or
	// evidence files of the unread rows would be orphaned on disk
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("evidence query failed: %w", err)
	}

	rows.Close()

	for _, p := range paths {
		os.Remove(p)
	}

	if _, err := s.Exec("DELETE FROM damages WHERE session_id = ?",
		sessionID); err != nil {
		return fmt.Errorf("failed to delete session damages: %w", err)
	}

	if _, err := s.Exec("DELETE FROM sessions WHERE id = ?",
		sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ExportCSV writes damage records to a CSV file.  An empty sessionID
// exports the whole database.
func (s *Store) ExportCSV(filepath, sessionID string) error {

	records, err := s.exportRecords(sessionID)

	if err != nil {
		return err
	}

	f, err := os.Create(filepath)

	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	defer f.Close()

	w := csv.NewWriter(f)

	w.Write([]string{"ID", "Session", "Timestamp", "Latitude", "Longitude",
		"Type", "Confidence", "Severity", "Created At", "Image Path"})

	for _, r := range records {
		w.Write([]string{
			fmt.Sprintf("%d", r.ID),
			r.SessionID,
			fmt.Sprintf("%g", r.Timestamp),
			fmt.Sprintf("%.7f", r.Latitude),
			fmt.Sprintf("%.7f", r.Longitude),
			r.DamageType,
			fmt.Sprintf("%.3f", r.Confidence),
			r.Severity,
			r.CreatedAt,
			r.ImagePath,
		})
	}

	w.Flush()

	return w.Error()
}

// geoJSON types mirror the subset of the format needed for export
type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// ExportGeoJSON writes damage records as a GeoJSON FeatureCollection.
// An empty sessionID exports the whole database.
func (s *Store) ExportGeoJSON(filepath, sessionID string) error {

	records, err := s.exportRecords(sessionID)

	if err != nil {
		return err
	}

	col := geoJSONCollection{
		Type:     "FeatureCollection",
		Features: make([]geoJSONFeature, 0, len(records)),
	}

	for _, r := range records {
		col.Features = append(col.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type: "Point",
				// GeoJSON coordinate order is lon, lat
				Coordinates: [2]float64{r.Longitude, r.Latitude},
			},
			Properties: map[string]any{
				"id":          r.ID,
				"damage_type": r.DamageType,
				"confidence":  r.Confidence,
				"severity":    r.Severity,
				"timestamp":   r.Timestamp,
				"created_at":  r.CreatedAt,
				"image_path":  r.ImagePath,
			},
		})
	}

	data, err := json.MarshalIndent(col, "", "  ")

	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON file: %w", err)
	}

	return nil
}

func (s *Store) exportRecords(sessionID string) ([]Record, error) {

	if sessionID != "" {
		return s.BySession(sessionID)
	}

	return s.All(1000, 0)
}
