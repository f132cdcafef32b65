package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"

	"github.com/robotalks/quadcop/pkg/flight"
)

const clientBacklog = 8

// Status is the snapshot served by the telemetry endpoint.
type Status struct {
	VehicleID string         `json:"vehicle-id"`
	SessionID string         `json:"session-id"`
	Record    *Frame         `json:"record,omitempty"`
	Timing    *JitterSummary `json:"timing,omitempty"`
}

// Server serves the latest record over HTTP and streams records to
// websocket clients:
//
//	GET /status      JSON Status
//	GET /telemetry   websocket, one JSON Frame per record
type Server struct {
	Addr      string
	VehicleID string
	SessionID string
	Jitter    *Jitter

	lock    sync.Mutex
	latest  *flight.Record
	clients map[chan flight.Record]struct{}
}

// NewServer creates a Server.
func NewServer(addr, vehicleID, sessionID string) *Server {
	return &Server{
		Addr:      addr,
		VehicleID: vehicleID,
		SessionID: sessionID,
		clients:   make(map[chan flight.Record]struct{}),
	}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "telemetry-http"
}

// Consume implements flight.RecordSink. Slow clients miss records.
func (s *Server) Consume(rec flight.Record) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.latest = &rec
	for ch := range s.clients {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/telemetry", websocket.Handler(s.handleStream)).Methods(http.MethodGet)
	return r
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	glog.Infof("telemetry at http://%s/status", s.Addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Snapshot returns the current Status.
func (s *Server) Snapshot() Status {
	st := Status{VehicleID: s.VehicleID, SessionID: s.SessionID}
	s.lock.Lock()
	if s.latest != nil {
		st.Record = NewFrame(s.SessionID, s.latest)
	}
	s.lock.Unlock()
	if s.Jitter != nil {
		summary := s.Jitter.Summary()
		st.Timing = &summary
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		glog.Warningf("write status error: %v", err)
	}
}

func (s *Server) handleStream(conn *websocket.Conn) {
	ch := make(chan flight.Record, clientBacklog)
	s.lock.Lock()
	s.clients[ch] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.clients, ch)
		s.lock.Unlock()
	}()

	// the client is gone when its side of the stream ends
	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()
	go func() {
		io.Copy(io.Discard, conn)
		cancel()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-ch:
			if err := websocket.JSON.Send(conn, NewFrame(s.SessionID, &rec)); err != nil {
				glog.V(1).Infof("telemetry client %s gone: %v", conn.Request().RemoteAddr, err)
				return
			}
		}
	}
}
