package gps

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// RecordedTrack is a position source backed by a recorded list of fixes,
// interpolated over the session length
type RecordedTrack struct {
	points []Point
	// cursor used when the total session length is unknown
	cursor int
}

// NewRecordedTrack creates a source from an explicit list of fixes
func NewRecordedTrack(points []Point) (*RecordedTrack, error) {

	if len(points) == 0 {
		return nil, fmt.Errorf("recorded track has no points")
	}

	return &RecordedTrack{points: points}, nil
}

// Points returns the underlying fixes
func (rt *RecordedTrack) Points() []Point {
	return rt.points
}

// Position maps the frame index onto the recorded track.  When
// totalFrames is unknown the track is walked one fix per call, holding
// the last fix once exhausted.
func (rt *RecordedTrack) Position(frame, totalFrames int) Point {

	if totalFrames <= 0 {

		if rt.cursor >= len(rt.points) {
			return rt.points[len(rt.points)-1]
		}

		p := rt.points[rt.cursor]
		rt.cursor++

		return p
	}

	return interpolate(rt.points, frame, totalFrames)
}

// LoadCSV reads a recorded track from a CSV file.  The header row must
// name at least "latitude" and "longitude" columns, "timestamp" and
// "elevation" are used when present.  Rows that fail to parse are
// skipped rather than aborting the whole track.
func LoadCSV(file string) (*RecordedTrack, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()

	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int)

	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	latCol, okLat := cols["latitude"]
	lonCol, okLon := cols["longitude"]

	if !okLat || !okLon {
		return nil, fmt.Errorf("CSV header missing latitude/longitude columns: %v",
			header)
	}

	var points []Point

	for {
		row, err := reader.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			continue
		}

		lat, errLat := strconv.ParseFloat(row[latCol], 64)
		lon, errLon := strconv.ParseFloat(row[lonCol], 64)

		if errLat != nil || errLon != nil {
			continue
		}

		p := Point{Lat: lat, Lon: lon}

		if i, ok := cols["timestamp"]; ok && i < len(row) {
			p.Timestamp, _ = strconv.ParseFloat(row[i], 64)
		}

		if i, ok := cols["elevation"]; ok && i < len(row) {
			p.Elevation, _ = strconv.ParseFloat(row[i], 64)
		}

		points = append(points, p)
	}

	return NewRecordedTrack(points)
}

// gpxFile mirrors the subset of the GPX 1.1 schema needed to recover
// track points
type gpxFile struct {
	XMLName xml.Name `xml:"gpx"`
	Tracks  []struct {
		Segments []struct {
			Points []struct {
				Lat       float64 `xml:"lat,attr"`
				Lon       float64 `xml:"lon,attr"`
				Elevation float64 `xml:"ele"`
			} `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

// LoadGPX reads a recorded track from a GPX file, flattening all track
// segments into one sequence of fixes
func LoadGPX(file string) (*RecordedTrack, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("failed to read GPX file: %w", err)
	}

	var g gpxFile

	if err := xml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	var points []Point

	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				points = append(points, Point{
					Lat:       pt.Lat,
					Lon:       pt.Lon,
					Elevation: pt.Elevation,
				})
			}
		}
	}

	return NewRecordedTrack(points)
}
