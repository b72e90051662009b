package damagetrack

// labelNames maps the raw RDD damage codes to readable display names for
// reports and overlays
var labelNames = map[string]string{
	"D00":          "Longitudinal Crack",
	"D10":          "Transverse Crack",
	"D20":          "Alligator Crack",
	"D40":          "Pothole",
	"D43":          "Damaged Lane Marking",
	"D44":          "Faded Lane Marking",
	"pothole":      "Pothole",
	"crack":        "Crack",
	"longitudinal": "Longitudinal Crack",
	"transverse":   "Transverse Crack",
	"alligator":    "Alligator Crack",
}

// LabelName returns the readable display name for a raw detector label.
// Unknown labels are returned unchanged.
func LabelName(label string) string {

	if name, ok := labelNames[label]; ok {
		return name
	}

	return label
}
