// Package attitude defines attitude samples and the bounded-wait poll used
// by the control loop to consume them.
package attitude

import (
	"errors"
	"fmt"

	"github.com/robotalks/quadcop/pkg/timeutil"
)

// ErrNoSample indicates no sample became available within the poll timeout.
var ErrNoSample = errors.New("no attitude sample")

// Sample is one attitude estimate. Angles are in degrees and altitude in
// meters. HasAltitude is false when the source does not measure altitude.
type Sample struct {
	Roll        float64
	Pitch       float64
	Yaw         float64
	Altitude    float64
	HasAltitude bool
	Timestamp   timeutil.Timeval
}

// String implements fmt.Stringer.
func (s Sample) String() string {
	str := fmt.Sprintf("roll=%.2f pitch=%.2f yaw=%.2f", s.Roll, s.Pitch, s.Yaw)
	if s.HasAltitude {
		str += fmt.Sprintf(" alt=%.2f", s.Altitude)
	}
	return str + " @" + s.Timestamp.String()
}
