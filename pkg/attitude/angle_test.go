package attitude

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAngle(t *testing.T) {
	testCases := []struct {
		name    string
		angle   Angle
		degrees float64
	}{
		{"zero", AngleFromDegrees(0), 0},
		{"right", AngleFromDegrees(90), 90},
		{"wrap positive", AngleFromDegrees(270), -90},
		{"wrap negative", AngleFromDegrees(-450), -90},
		{"radians", AngleFromRadians(math.Pi / 4), 45},
		{"add across", AngleFromDegrees(170).AddDegrees(20), -170},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.degrees, tc.angle.Degrees(), 1e-9)
		})
	}
}
