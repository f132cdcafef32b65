// Package mavlink reads attitude from a flight controller speaking MAVLink.
package mavlink

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/attitude"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

// DefaultBaud is used for serial endpoints without a baud parameter.
const DefaultBaud = 57600

// Config defines the MAVLink connection.
type Config struct {
	// Endpoints are URLs like udp://:14550, tcp://host:5760 or
	// serial:///dev/ttyACM0?baud=115200.
	Endpoints []string
	SystemID  byte
}

// ParseEndpoint converts an endpoint URL into a gomavlib endpoint.
func ParseEndpoint(s string) (gomavlib.EndpointConf, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	switch u.Scheme {
	case "udp":
		return gomavlib.EndpointUDPServer{Address: u.Host}, nil
	case "udpc":
		return gomavlib.EndpointUDPClient{Address: u.Host}, nil
	case "tcp":
		return gomavlib.EndpointTCPClient{Address: u.Host}, nil
	case "tcps":
		return gomavlib.EndpointTCPServer{Address: u.Host}, nil
	case "serial":
		baud := DefaultBaud
		if str := u.Query().Get("baud"); str != "" {
			if baud, err = strconv.Atoi(str); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", str, err)
			}
		}
		return gomavlib.EndpointSerial{Device: u.Path, Baud: baud}, nil
	}
	return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
}

// Source publishes ATTITUDE messages as samples, tagging them with the
// latest GLOBAL_POSITION_INT relative altitude.
type Source struct {
	Clock timeutil.Clock

	node      *gomavlib.Node
	poller    *attitude.Poller
	closeOnce sync.Once

	lock        sync.Mutex
	altitude    float64
	hasAltitude bool
}

// New connects to the configured endpoints.
func New(conf Config, clock timeutil.Clock) (*Source, error) {
	var endpoints []gomavlib.EndpointConf
	for _, str := range conf.Endpoints {
		ep, err := ParseEndpoint(str)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one MAVLink endpoint is required")
	}
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   endpoints,
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: conf.SystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("create MAVLink node error: %w", err)
	}
	s := newSource(clock)
	s.node = node
	return s, nil
}

func newSource(clock timeutil.Clock) *Source {
	return &Source{Clock: clock, poller: attitude.NewPoller()}
}

// Name implements framework.Named.
func (s *Source) Name() string {
	return "mavlink"
}

// TryRead implements the attitude source.
func (s *Source) TryRead(timeout time.Duration) (attitude.Sample, error) {
	return s.poller.TryRead(timeout)
}

// Close implements io.Closer. It may be called more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.node != nil {
			s.node.Close()
		}
	})
	return nil
}

// Run implements framework.Runnable. The node is closed when it returns.
func (s *Source) Run(ctx context.Context) error {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-s.node.Events():
			if !ok {
				return fmt.Errorf("MAVLink node closed")
			}
			switch evt := evt.(type) {
			case *gomavlib.EventFrame:
				s.HandleMessage(evt.Frame.GetMessage())
			case *gomavlib.EventChannelOpen:
				glog.Infof("MAVLink channel open: %v", evt.Channel)
			case *gomavlib.EventChannelClose:
				glog.Warningf("MAVLink channel closed: %v", evt.Channel)
			}
		}
	}
}

// HandleMessage consumes one decoded message.
func (s *Source) HandleMessage(msg message.Message) {
	switch msg := msg.(type) {
	case *common.MessageAttitude:
		s.lock.Lock()
		sample := attitude.Sample{
			Roll:        attitude.AngleFromRadians(float64(msg.Roll)).Degrees(),
			Pitch:       attitude.AngleFromRadians(float64(msg.Pitch)).Degrees(),
			Yaw:         attitude.AngleFromRadians(float64(msg.Yaw)).Degrees(),
			Altitude:    s.altitude,
			HasAltitude: s.hasAltitude,
			Timestamp:   s.Clock.Now(),
		}
		s.lock.Unlock()
		glog.V(4).Infof("MAVLink attitude %s", sample)
		s.poller.Publish(sample)
	case *common.MessageGlobalPositionInt:
		s.lock.Lock()
		s.altitude = float64(msg.RelativeAlt) / 1000
		s.hasAltitude = true
		s.lock.Unlock()
	}
}
