package flight

import (
	"strconv"

	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

// Record is the per-iteration log record.
type Record struct {
	Iteration uint64
	Status    Status
	// Fresh is false when the iteration had no new sample and Sample is
	// the last one received.
	Fresh    bool
	Sample   attitude.Sample
	Channels [channels.Count]int
	// Loop is the iteration start relative to the run start.
	Loop timeutil.Timeval
}

// AppendText appends the text form of the record:
//
//	sample_sec sample_usec roll pitch yaw ch_roll ch_pitch ch_yaw ch_throttle loop_sec loop_usec
//
// Fields are only ever appended to this line.
func (r *Record) AppendText(b []byte) []byte {
	b = strconv.AppendInt(b, r.Sample.Timestamp.Sec, 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, r.Sample.Timestamp.Usec, 10)
	for _, v := range []float64{r.Sample.Roll, r.Sample.Pitch, r.Sample.Yaw} {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, v, 'f', 6, 64)
	}
	for _, ch := range []channels.Channel{channels.Roll, channels.Pitch, channels.Yaw, channels.Throttle} {
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(r.Channels[ch]), 10)
	}
	b = append(b, ' ')
	b = strconv.AppendInt(b, r.Loop.Sec, 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, r.Loop.Usec, 10)
	return append(b, '\n')
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return string(r.AppendText(nil))
}
