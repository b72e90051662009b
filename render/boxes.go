// Package render draws tracked damage overlays on video frames and
// annotates exported evidence images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/roadsight/damagetrack"
	"github.com/roadsight/damagetrack/tracker"
)

// boxLabel records the details of a pending box label so all labels can
// be drawn as the top most layer
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DamageBoxes renders the bounding boxes of live tracks.  Confirmed
// tracks are drawn in their palette color with a damage label,
// unconfirmed hypotheses are drawn thin and gray without one.
func DamageBoxes(img *gocv.Mat, tracks []damagetrack.TrackSnapshot,
	font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0)

	for _, t := range tracks {

		boxLeft := int(t.X1)
		boxTop := int(t.Y1)
		boxRight := int(t.X2)
		boxBottom := int(t.Y2)

		drawRect := image.Rect(boxLeft, boxTop, boxRight, boxBottom)

		if !t.Confirmed {
			gocv.Rectangle(img, drawRect, Gray, 1)
			continue
		}

		useClr := TrackColor(t.ID)

		gocv.Rectangle(img, drawRect, useClr, lineThickness)

		text := fmt.Sprintf("%s #%d %.2f",
			damagetrack.LabelName(t.Label), t.ID, t.Confidence)

		textSize := gocv.GetTextSize(text, font.Face, font.Scale,
			font.Thickness)

		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (boxLeft + boxRight) / 2

		case Right:
			centerX = boxRight - (textSize.X / 2) - font.RightPad +
				(lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = boxLeft + (textSize.X / 2) + font.LeftPad -
				(lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, boxTop-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			boxTop-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, boxTop)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by trail lines
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// HUD draws the running session readout in the top left corner of the
// frame
func HUD(img *gocv.Mat, stats damagetrack.Stats, lat, lon float64,
	font Font) {

	lines := []string{
		fmt.Sprintf("frame %d", stats.FramesProcessed),
		fmt.Sprintf("tracks %d", stats.ActiveTracks),
		fmt.Sprintf("damages %d", stats.TotalDamages),
		fmt.Sprintf("gps %.6f, %.6f", lat, lon),
	}

	lineHeight := gocv.GetTextSize("0", font.Face, font.Scale,
		font.Thickness).Y + 10

	for i, line := range lines {
		gocv.PutTextWithParams(img, line,
			image.Pt(10, lineHeight*(i+1)),
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// CropEvidence cuts the detection region out of the frame with padding
// around it, clamped to the frame bounds.  The returned Mat is a clone
// the caller must Close.
func CropEvidence(img gocv.Mat, rect tracker.Rect, pad int) gocv.Mat {

	x1 := int(rect.X()) - pad
	y1 := int(rect.Y()) - pad
	x2 := int(rect.BRX()) + pad
	y2 := int(rect.BRY()) + pad

	if x1 < 0 {
		x1 = 0
	}

	if y1 < 0 {
		y1 = 0
	}

	if x2 > img.Cols() {
		x2 = img.Cols()
	}

	if y2 > img.Rows() {
		y2 = img.Rows()
	}

	region := img.Region(image.Rect(x1, y1, x2, y2))
	defer region.Close()

	return region.Clone()
}
