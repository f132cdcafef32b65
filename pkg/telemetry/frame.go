package telemetry

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/quadcop/pkg/flight"
)

// Frame is the protobuf telemetry message published per record:
//
//	message Frame {
//	  string session_id = 1;
//	  uint64 iteration = 2;
//	  string status = 3;
//	  bool fresh = 4;
//	  double roll = 5;
//	  double pitch = 6;
//	  double yaw = 7;
//	  double altitude = 8;
//	  repeated int32 channels = 9;
//	  int64 sample_usec = 10;
//	  int64 loop_usec = 11;
//	}
type Frame struct {
	SessionId  string  `protobuf:"bytes,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Iteration  uint64  `protobuf:"varint,2,opt,name=iteration,proto3" json:"iteration,omitempty"`
	Status     string  `protobuf:"bytes,3,opt,name=status,proto3" json:"status,omitempty"`
	Fresh      bool    `protobuf:"varint,4,opt,name=fresh,proto3" json:"fresh,omitempty"`
	Roll       float64 `protobuf:"fixed64,5,opt,name=roll,proto3" json:"roll,omitempty"`
	Pitch      float64 `protobuf:"fixed64,6,opt,name=pitch,proto3" json:"pitch,omitempty"`
	Yaw        float64 `protobuf:"fixed64,7,opt,name=yaw,proto3" json:"yaw,omitempty"`
	Altitude   float64 `protobuf:"fixed64,8,opt,name=altitude,proto3" json:"altitude,omitempty"`
	Channels   []int32 `protobuf:"varint,9,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	SampleUsec int64   `protobuf:"varint,10,opt,name=sample_usec,json=sampleUsec,proto3" json:"sample_usec,omitempty"`
	LoopUsec   int64   `protobuf:"varint,11,opt,name=loop_usec,json=loopUsec,proto3" json:"loop_usec,omitempty"`
}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Frame) ProtoMessage() {}

// NewFrame converts a record.
func NewFrame(sessionID string, rec *flight.Record) *Frame {
	f := &Frame{
		SessionId:  sessionID,
		Iteration:  rec.Iteration,
		Status:     rec.Status.String(),
		Fresh:      rec.Fresh,
		Roll:       rec.Sample.Roll,
		Pitch:      rec.Sample.Pitch,
		Yaw:        rec.Sample.Yaw,
		Altitude:   rec.Sample.Altitude,
		Channels:   make([]int32, len(rec.Channels)),
		SampleUsec: rec.Sample.Timestamp.Micros(),
		LoopUsec:   rec.Loop.Micros(),
	}
	for n, v := range rec.Channels {
		f.Channels[n] = int32(v)
	}
	return f
}

// MarshalFrame encodes a frame.
func MarshalFrame(f *Frame) ([]byte, error) {
	return proto.Marshal(f)
}

// UnmarshalFrame decodes a frame.
func UnmarshalFrame(b []byte) (*Frame, error) {
	f := &Frame{}
	if err := proto.Unmarshal(b, f); err != nil {
		return nil, err
	}
	return f, nil
}
