package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gocv.io/x/gocv"

	"github.com/roadsight/damagetrack"
	"github.com/roadsight/damagetrack/api"
	"github.com/roadsight/damagetrack/gps"
	"github.com/roadsight/damagetrack/publish"
	"github.com/roadsight/damagetrack/render"
	"github.com/roadsight/damagetrack/store"
	"github.com/roadsight/damagetrack/tracker"
)

// FrameDetections holds the detector outputs of a single video frame
type FrameDetections struct {
	Frame      int
	Detections []damagetrack.Detection
}

// Inspector replays a recorded survey run through the tracking engine,
// persisting and publishing each confirmed damage
type Inspector struct {
	engine *damagetrack.Engine
	trail  *tracker.Trail
	db     *store.Store
	pub    *publish.Publisher

	gpsSource gps.Source
	odometer  gps.Odometer

	// video is nil when replaying detections without footage
	video  *gocv.VideoCapture
	writer *gocv.VideoWriter

	sessionID   string
	evidenceDir string
	font        render.Font
}

// loadDetections reads a recorded detections CSV with the columns
// frame,x1,y1,x2,y2,label,confidence and groups rows by frame number.
// Rows must be ordered by ascending frame.
func loadDetections(file string) ([]FrameDetections, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("failed to open detections file: %w", err)
	}

	defer f.Close()

	reader := csv.NewReader(f)

	// skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read detections header: %w", err)
	}

	var frames []FrameDetections

	for {
		row, err := reader.Read()

		if err == io.EOF {
			break
		}

		if err != nil || len(row) < 7 {
			continue
		}

		frame, err := strconv.Atoi(row[0])

		if err != nil {
			continue
		}

		var vals [4]float64

		ok := true

		for i := 0; i < 4; i++ {
			vals[i], err = strconv.ParseFloat(row[i+1], 64)

			if err != nil {
				ok = false
				break
			}
		}

		conf, err := strconv.ParseFloat(row[6], 64)

		if !ok || err != nil {
			continue
		}

		det := damagetrack.NewDetection(
			float32(vals[0]), float32(vals[1]),
			float32(vals[2]), float32(vals[3]),
			row[5], float32(conf))

		// group consecutive rows of the same frame
		if len(frames) > 0 && frames[len(frames)-1].Frame == frame {
			last := &frames[len(frames)-1]
			last.Detections = append(last.Detections, det)
		} else {
			frames = append(frames, FrameDetections{
				Frame:      frame,
				Detections: []damagetrack.Detection{det},
			})
		}
	}

	return frames, nil
}

// expandFrames fills the gaps between recorded detection frames with
// empty frames so the engine sees every frame index from 0 to the last
// in strictly increasing order
func expandFrames(frames []FrameDetections) []FrameDetections {

	if len(frames) == 0 {
		return nil
	}

	last := frames[len(frames)-1].Frame
	expanded := make([]FrameDetections, 0, last+1)

	next := 0

	for frame := 0; frame <= last; frame++ {

		if next < len(frames) && frames[next].Frame == frame {
			expanded = append(expanded, frames[next])
			next++
			continue
		}

		expanded = append(expanded, FrameDetections{Frame: frame})
	}

	return expanded
}

// newGPSSource builds the position source from the cli flags
func newGPSSource(gpsFile string, startLat, startLon float64) (gps.Source, error) {

	if gpsFile == "" {
		return gps.NewSimulator(startLat, startLon, time.Now().UnixNano()), nil
	}

	switch filepath.Ext(gpsFile) {
	case ".gpx":
		return gps.LoadGPX(gpsFile)
	default:
		return gps.LoadCSV(gpsFile)
	}
}

// processFrame runs one frame of detections through the engine and
// handles the confirmed events
func (ins *Inspector) processFrame(fd FrameDetections, totalFrames int,
	img *gocv.Mat) error {

	pos := ins.gpsSource.Position(fd.Frame, totalFrames)
	ins.odometer.Observe(pos)

	events, err := ins.engine.Update(fd.Detections, pos.Lat, pos.Lon)

	if err != nil {
		return fmt.Errorf("engine update failed: %w", err)
	}

	for _, t := range ins.engine.ActiveTracks() {
		ins.trail.Add(t.ID, int(t.CenterX()), int(t.CenterY()))
	}

	for _, evt := range events {

		log.Printf("damage confirmed: track=%d type=%s group=%s conf=%.2f at %.6f,%.6f",
			evt.TrackID, evt.Label, evt.Group, evt.Confidence, evt.Lat, evt.Lon)

		imagePath := ""

		if img != nil {
			imagePath = ins.saveEvidence(evt, *img)
		}

		timestamp := float64(fd.Frame)

		if _, err := ins.db.SaveEvent(evt, ins.sessionID, timestamp,
			imagePath); err != nil {
			log.Printf("failed to store damage: %v", err)
		}

		if ins.pub != nil {
			if err := ins.pub.Publish(evt, ins.sessionID); err != nil {
				log.Printf("failed to publish damage: %v", err)
			}
		}
	}

	// draw overlays when footage is available
	if img != nil {
		tracks := ins.engine.ActiveTracks()

		render.DamageBoxes(img, tracks, ins.font, 2)
		render.Trails(img, tracks, ins.trail, render.DefaultTrailStyle())
		render.HUD(img, ins.engine.Stats(), pos.Lat, pos.Lon,
			render.HUDFont())

		if ins.writer != nil {
			ins.writer.Write(*img)
		}
	}

	return nil
}

// saveEvidence writes a cropped JPG of the damage region and returns
// its path, or an empty string on failure
func (ins *Inspector) saveEvidence(evt damagetrack.DamageEvent,
	img gocv.Mat) string {

	rect := tracker.RectFromCorners(evt.X1, evt.Y1, evt.X2, evt.Y2)

	crop := render.CropEvidence(img, rect, 40)
	defer crop.Close()

	name := fmt.Sprintf("dmg_%d_%s.jpg", evt.TrackID,
		uuid.NewString()[:12])
	path := filepath.Join(ins.evidenceDir, name)

	if ok := gocv.IMWrite(path, crop); !ok {
		log.Printf("failed to write evidence image %s", path)
		return ""
	}

	return path
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	detFile := flag.String("d", "detections.csv", "CSV file of recorded detections (frame,x1,y1,x2,y2,label,confidence)")
	vidFile := flag.String("v", "", "Optional video file matching the detections, enables overlays and evidence images")
	outFile := flag.String("o", "", "Optional annotated output video file, requires -v")
	gpsFile := flag.String("g", "", "Optional GPS track file (.csv or .gpx), simulated route when omitted")
	dbFile := flag.String("db", "damage.db", "SQLite database file for confirmed damage")
	evidenceDir := flag.String("e", "evidence", "Directory to write evidence images to")
	httpAddr := flag.String("a", "", "Optional HTTP address to serve the query API on, format address:port")
	useKafka := flag.Bool("kafka", false, "Publish confirmed damage to Kafka using KAFKA_* env settings")
	startLat := flag.Float64("lat", -6.9024, "Simulated route start latitude")
	startLon := flag.Float64("lon", 107.6188, "Simulated route start longitude")

	flag.Parse()

	// optional .env for Kafka credentials
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded settings from .env")
	}

	frames, err := loadDetections(*detFile)

	if err != nil {
		log.Fatalf("Error loading detections: %v", err)
	}

	if len(frames) == 0 {
		log.Fatalf("No detections found in %s", *detFile)
	}

	engine, err := damagetrack.NewEngine(damagetrack.DefaultConfig())

	if err != nil {
		log.Fatalf("Error creating engine: %v", err)
	}

	db, err := store.NewStore(*dbFile)

	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	defer db.Close()

	gpsSource, err := newGPSSource(*gpsFile, *startLat, *startLon)

	if err != nil {
		log.Fatalf("Error creating GPS source: %v", err)
	}

	ins := &Inspector{
		engine:      engine,
		trail:       tracker.NewTrail(60),
		db:          db,
		gpsSource:   gpsSource,
		evidenceDir: *evidenceDir,
		font:        render.DefaultFont(),
	}

	if *useKafka {
		ins.pub, err = publish.NewPublisher(publish.ConfigFromEnv())

		if err != nil {
			log.Fatalf("Error creating Kafka publisher: %v", err)
		}

		defer ins.pub.Close()
	}

	if *vidFile != "" {

		if err := os.MkdirAll(*evidenceDir, 0755); err != nil {
			log.Fatalf("Error creating evidence directory: %v", err)
		}

		ins.video, err = gocv.VideoCaptureFile(*vidFile)

		if err != nil {
			log.Fatalf("Error opening video: %v", err)
		}

		defer ins.video.Close()

		width := int(ins.video.Get(gocv.VideoCaptureFrameWidth))
		height := int(ins.video.Get(gocv.VideoCaptureFrameHeight))

		engine.SetFrameSize(width, height)

		if *outFile != "" {
			fps := ins.video.Get(gocv.VideoCaptureFPS)

			ins.writer, err = gocv.VideoWriterFile(*outFile, "MJPG",
				fps, width, height, true)

			if err != nil {
				log.Fatalf("Error creating output video: %v", err)
			}

			defer ins.writer.Close()
		}
	}

	ins.sessionID, err = db.CreateSession(*vidFile)

	if err != nil {
		log.Fatalf("Error creating session: %v", err)
	}

	log.Printf("Started inspection session %s", ins.sessionID)

	// serve the query API while the replay runs
	if *httpAddr != "" {
		router := api.SetupRouter(engine, db)

		go func() {
			if err := router.Run(*httpAddr); err != nil {
				log.Printf("API server stopped: %v", err)
			}
		}()

		log.Printf("Query API available at http://%s/api/stats", *httpAddr)
	}

	// detection-free frames between recorded groups still age the tracks,
	// so every frame index is fed to the engine
	expanded := expandFrames(frames)
	totalFrames := len(expanded)

	img := gocv.NewMat()
	defer img.Close()

	for _, fd := range expanded {

		var frameImg *gocv.Mat

		if ins.video != nil {
			if ok := ins.video.Read(&img); !ok {
				ins.video = nil
			} else if !img.Empty() {
				frameImg = &img
			}
		}

		if err := ins.processFrame(fd, totalFrames, frameImg); err != nil {
			log.Fatalf("Error processing frame %d: %v", fd.Frame, err)
		}
	}

	distanceKM := ins.odometer.TotalMeters() / 1000

	if err := db.EndSession(ins.sessionID, distanceKM); err != nil {
		log.Printf("Error ending session: %v", err)
	}

	stats := engine.Stats()

	log.Printf("Session complete: %d frames, %d unique damages over %.2fkm",
		stats.FramesProcessed, stats.TotalDamages, distanceKM)

	for group, count := range stats.ByType {
		log.Printf("  %s: %d", group, count)
	}

	// export session results next to the database
	geojson := *dbFile + ".geojson"

	if err := db.ExportGeoJSON(geojson, ins.sessionID); err != nil {
		log.Printf("Error exporting GeoJSON: %v", err)
	} else {
		log.Printf("Damage map written to %s", geojson)
	}
}
