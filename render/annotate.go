package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// TTFFontSize is the point size evidence annotations are drawn at
	TTFFontSize = 14

	// severityBarWidth is the pixel width of the colored strip drawn
	// down the left edge of an evidence image
	severityBarWidth = 6
)

// Annotator stamps evidence images with the damage details recorded at
// confirmation time
type Annotator struct {
	fontFace font.Face
}

// NewAnnotator loads a TTF font and creates an annotator drawing with it
func NewAnnotator(ttfFont string) (*Annotator, error) {

	fontBytes, err := os.ReadFile(ttfFont)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    TTFFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &Annotator{fontFace: face}, nil
}

// NewAnnotatorFromFace creates an annotator drawing with an already
// constructed type face
func NewAnnotatorFromFace(face font.Face) *Annotator {
	return &Annotator{fontFace: face}
}

// Stamp draws the severity strip and text lines onto the evidence
// image.  Lines are drawn top down from the upper left corner over a
// dark backing strip so they stay readable on any road surface.
func (a *Annotator) Stamp(img *image.RGBA, lines []string, severity string) {

	bounds := img.Bounds()

	// severity strip down the left edge
	strip := image.Rect(bounds.Min.X, bounds.Min.Y,
		bounds.Min.X+severityBarWidth, bounds.Max.Y)

	draw.Draw(img, strip, image.NewUniform(SeverityColor(severity)),
		image.Point{}, draw.Src)

	metrics := a.fontFace.Metrics()
	lineHeight := metrics.Height.Ceil() + 2

	// backing strip behind the text
	backingHeight := lineHeight*len(lines) + 8

	if backingHeight > bounds.Dy() {
		backingHeight = bounds.Dy()
	}

	backing := image.Rect(bounds.Min.X+severityBarWidth, bounds.Min.Y,
		bounds.Max.X, bounds.Min.Y+backingHeight)

	draw.DrawMask(img, backing,
		image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{},
		image.NewUniform(color.Alpha{A: 160}), image.Point{}, draw.Over)

	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(White),
		Face: a.fontFace,
	}

	y := bounds.Min.Y + metrics.Ascent.Ceil() + 4

	for _, line := range lines {
		dr.Dot = fixed.Point26_6{
			X: fixed.I(bounds.Min.X + severityBarWidth + 6),
			Y: fixed.I(y),
		}

		dr.DrawString(line)
		y += lineHeight
	}
}

// EvidenceLines formats the standard annotation block for an evidence
// image
func EvidenceLines(damageType string, trackID int, confidence float32,
	lat, lon float64) []string {

	return []string{
		fmt.Sprintf("%s #%d (%.2f)", damageType, trackID, confidence),
		fmt.Sprintf("%.6f, %.6f", lat, lon),
	}
}
