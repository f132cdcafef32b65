package telemetry

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/flight"
	"github.com/robotalks/quadcop/pkg/framework"
)

// Publisher defaults.
const (
	DefaultPublishInterval = 100 * time.Millisecond
	DefaultPublishBacklog  = 64
)

// Publisher sends records as protobuf frames to the telemetry topic of
// the vehicle. Consume only queues, publishing happens in Run.
type Publisher struct {
	MQ        *mqtt.Queue
	VehicleID string
	SessionID string
	Interval  time.Duration
	// Every publishes only every n-th record, 0 or 1 publishes all.
	Every uint64

	records framework.Mailbox[flight.Record]
}

// NewPublisher creates a Publisher.
func NewPublisher(mq *mqtt.Queue, vehicleID, sessionID string) *Publisher {
	p := &Publisher{MQ: mq, VehicleID: vehicleID, SessionID: sessionID, Interval: DefaultPublishInterval}
	p.records.Limit = DefaultPublishBacklog
	return p
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "telemetry-mqtt"
}

// Consume implements flight.RecordSink.
func (p *Publisher) Consume(rec flight.Record) {
	if p.Every > 1 && rec.Iteration%p.Every != 0 {
		return
	}
	if !p.records.Post(rec) {
		glog.V(1).Infof("telemetry backlog full, drop record %d", rec.Iteration)
	}
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.publish()
			return ctx.Err()
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *Publisher) publish() {
	topic := mqtt.TelemetryTopic(p.VehicleID)
	for _, rec := range p.records.Drain() {
		payload, err := MarshalFrame(NewFrame(p.SessionID, &rec))
		if err != nil {
			glog.Errorf("encode telemetry error: %v", err)
			continue
		}
		p.MQ.Pub(topic, payload)
	}
}
