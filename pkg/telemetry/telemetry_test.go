package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/flight"
	"github.com/robotalks/quadcop/pkg/framework"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

func testRecord(iteration uint64) flight.Record {
	return flight.Record{
		Iteration: iteration,
		Status:    flight.StatusStarted,
		Fresh:     true,
		Sample: attitude.Sample{
			Roll: 1, Pitch: -1, Yaw: 45, Altitude: 0.5, HasAltitude: true,
			Timestamp: timeutil.Timeval{Sec: 3, Usec: 250},
		},
		Channels: channels.New().Values(),
		Loop:     timeutil.Timeval{Sec: 0, Usec: int64(iteration) * 50000},
	}
}

func TestFlightLog(t *testing.T) {
	require.Equal(t, "vuelo_1450_.txt", FlightLogName("vuelo", 1450))

	dir := t.TempDir()
	l, err := CreateFlightLog(dir, "vuelo", 1450)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "vuelo_1450_.txt"), l.Path())
	rec := testRecord(1)
	_, err = l.Write(rec.AppendText(nil))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	content, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	require.Equal(t, "3 250 1.000000 -1.000000 45.000000 1500 1500 1500 950 0 50000\n", string(content))

	_, err = CreateFlightLog(filepath.Join(dir, "missing"), "vuelo", 1450)
	require.Error(t, err)
}

func TestJitter(t *testing.T) {
	j := NewJitter(4)
	require.Zero(t, j.Summary().Count)
	start := timeutil.Timeval{Sec: 10}
	periods := []int64{50000, 50000, 60000, 40000, 50000}
	at := start
	for n := 0; n <= len(periods); n++ {
		var err error
		if n == 2 {
			err = &timeutil.OverrunError{Elapsed: 60 * time.Millisecond, Period: 50 * time.Millisecond}
		}
		j.ObserveTiming(framework.Iteration{Index: uint64(n), Start: at}, at, err)
		if n < len(periods) {
			at = timeutil.FromDuration(at.Duration() + time.Duration(periods[n])*time.Microsecond)
		}
	}
	s := j.Summary()
	// window keeps the last 4 periods
	require.Equal(t, 4, s.Count)
	require.Equal(t, uint64(1), s.Overruns)
	require.Equal(t, 50*time.Millisecond, s.Mean)
	require.Equal(t, 60*time.Millisecond, s.Max)
	require.Equal(t, 50*time.Millisecond, s.Median)
	require.True(t, s.StdDev > 0)
}

func TestFrame(t *testing.T) {
	rec := testRecord(7)
	f := NewFrame("session", &rec)
	require.Equal(t, "started", f.Status)
	require.Equal(t, []int32{1500, 1500, 1500, 950, 2000, 100}, f.Channels)
	require.Equal(t, int64(3000250), f.SampleUsec)
	require.Equal(t, int64(350000), f.LoopUsec)

	b, err := MarshalFrame(f)
	require.NoError(t, err)
	decoded, err := UnmarshalFrame(b)
	require.NoError(t, err)
	require.Equal(t, f, decoded)
	require.Contains(t, f.String(), `session_id:"session"`)
}

func TestPublisherDecimation(t *testing.T) {
	mq, err := mqtt.NewQueueFromURL("mqtt://localhost:1883/")
	require.NoError(t, err)
	p := NewPublisher(mq, "qc", "session")
	p.Every = 5
	for n := uint64(0); n < 20; n++ {
		p.Consume(testRecord(n))
	}
	require.Equal(t, 4, p.records.Len())
	p.publish()
	require.Zero(t, p.records.Len())
}

func TestServerStatus(t *testing.T) {
	s := NewServer("", "qc", "session")
	s.Jitter = NewJitter(10)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var st Status
	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.Equal(t, "qc", st.VehicleID)
	require.Nil(t, st.Record)
	require.NotNil(t, st.Timing)

	s.Consume(testRecord(3))
	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.NotNil(t, st.Record)
	require.Equal(t, uint64(3), st.Record.Iteration)

	resp, err = http.Post(srv.URL+"/status", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerStream(t *testing.T) {
	s := NewServer("", "qc", "session")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/telemetry"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		s.lock.Lock()
		defer s.lock.Unlock()
		return len(s.clients) == 1
	}, time.Second, time.Millisecond)

	s.Consume(testRecord(9))
	var f Frame
	require.NoError(t, websocket.JSON.Receive(conn, &f))
	require.Equal(t, uint64(9), f.Iteration)
	require.Equal(t, "session", f.SessionId)
}
