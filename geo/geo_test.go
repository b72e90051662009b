package geo

import (
	"math"
	"testing"
)

// TestHaversine checks known distances between coordinate pairs
func TestHaversine(t *testing.T) {

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "zero distance",
			lat1: -6.9024, lon1: 107.6188,
			lat2: -6.9024, lon2: 107.6188,
			want:      0,
			tolerance: 0.001,
		},
		{
			name: "one degree latitude",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			want:      111195,
			tolerance: 100,
		},
		{
			name: "short road segment",
			lat1: -6.90240, lon1: 107.61880,
			lat2: -6.90245, lon2: 107.61885,
			want:      7.8,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)

		if math.Abs(got-tt.want) > tt.tolerance {
			t.Errorf("%s: expected %.3fm, got %.3fm", tt.name, tt.want, got)
		}
	}
}
