package command

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/comm/mqtt"
)

// MQTTSource forwards tokens published on the command topic of a vehicle.
type MQTTSource struct {
	MQ        *mqtt.Queue
	VehicleID string
	Queue     *Queue
}

// Name implements framework.Named.
func (s *MQTTSource) Name() string {
	return "command-mqtt"
}

// Run implements framework.Runnable.
func (s *MQTTSource) Run(ctx context.Context) error {
	sub := s.MQ.Sub(mqtt.CommandTopic(s.VehicleID), s.handleMsg)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (s *MQTTSource) handleMsg(topic string, payload []byte) {
	n := s.Queue.Post(payload)
	glog.V(1).Infof("%d command tokens from %s", n, topic)
}
