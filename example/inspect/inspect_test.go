package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roadsight/damagetrack"
)

// TestExpandFrames checks the replay feeds every frame index to the
// engine, including detection-free gaps, so tracks age across them
func TestExpandFrames(t *testing.T) {

	frames := []FrameDetections{
		{Frame: 0, Detections: []damagetrack.Detection{
			damagetrack.NewDetection(10, 10, 50, 50, "D40", 0.9),
		}},
		{Frame: 5, Detections: []damagetrack.Detection{
			damagetrack.NewDetection(10, 10, 50, 50, "D40", 0.9),
		}},
	}

	expanded := expandFrames(frames)

	if len(expanded) != 6 {
		t.Fatalf("expected frames 0 through 5, got %d frames", len(expanded))
	}

	for i, fd := range expanded {
		if fd.Frame != i {
			t.Errorf("expected frame %d at position %d, got %d", i, i, fd.Frame)
		}
	}

	// gap frames carry no detections, endpoint frames keep theirs
	if len(expanded[0].Detections) != 1 || len(expanded[5].Detections) != 1 {
		t.Errorf("recorded frames lost their detections")
	}

	for i := 1; i <= 4; i++ {
		if len(expanded[i].Detections) != 0 {
			t.Errorf("gap frame %d should be empty, got %d detections",
				i, len(expanded[i].Detections))
		}
	}
}

// TestExpandFramesAgesTracks checks a gap wider than MaxAge retires the
// track when the expanded replay is run through the engine
func TestExpandFramesAgesTracks(t *testing.T) {

	det := []damagetrack.Detection{
		damagetrack.NewDetection(10, 10, 50, 50, "D40", 0.9),
	}

	frames := []FrameDetections{
		{Frame: 0, Detections: det},
		// 40 frame gap, past the default MaxAge of 30
		{Frame: 41, Detections: det},
	}

	engine, err := damagetrack.NewEngine(damagetrack.DefaultConfig())

	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	for _, fd := range expandFrames(frames) {
		if _, err := engine.Update(fd.Detections, 0, 0); err != nil {
			t.Fatalf("update failed on frame %d: %v", fd.Frame, err)
		}
	}

	tracks := engine.ActiveTracks()

	if len(tracks) != 1 {
		t.Fatalf("expected 1 live track after the gap, got %d", len(tracks))
	}

	// the pre-gap track aged out, the re-detection got a fresh id
	if tracks[0].ID != 1 {
		t.Errorf("expected the gap to retire track 0, live track is %d",
			tracks[0].ID)
	}
}

func TestExpandFramesEmpty(t *testing.T) {

	if got := expandFrames(nil); got != nil {
		t.Errorf("expected nil for no recorded frames, got %v", got)
	}
}

// TestLoadDetections checks CSV rows group by frame and malformed rows
// are skipped
func TestLoadDetections(t *testing.T) {

	path := filepath.Join(t.TempDir(), "detections.csv")

	content := "frame,x1,y1,x2,y2,label,confidence\n" +
		"0,10,10,50,50,D40,0.9\n" +
		"0,100,100,160,150,D20,0.8\n" +
		"bad,row\n" +
		"3,12,11,52,51,D40,0.85\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	frames, err := loadDetections(path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 detection frames, got %d", len(frames))
	}

	if len(frames[0].Detections) != 2 {
		t.Errorf("expected 2 detections on frame 0, got %d",
			len(frames[0].Detections))
	}

	if frames[1].Frame != 3 || frames[1].Detections[0].Label != "D40" {
		t.Errorf("unexpected second frame %+v", frames[1])
	}
}
