package mqtt

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/golang/glog"
)

// Topics of a vehicle, relative to the topic prefix.
func CommandTopic(vehicleID string) string   { return vehicleID + "/cmd" }
func TelemetryTopic(vehicleID string) string { return vehicleID + "/telemetry" }
func MetaTopic(vehicleID string) string      { return vehicleID + "/meta" }

// Config defines the broker connection.
type Config struct {
	// BrokerURL e.g. mqtt://host:port/topic-prefix, empty disables MQTT.
	BrokerURL string
}

// EnvBrokerURL overrides the default broker URL.
const EnvBrokerURL = "QUADCOP_MQTT_URL"

var defaultConfig = Config{}

// ApplyEnv applies environment overrides to the defaults.
func ApplyEnv() {
	if val := os.Getenv(EnvBrokerURL); val != "" {
		defaultConfig.BrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, empty to disable.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// Enabled reports whether a broker is configured.
func (c *Config) Enabled() bool {
	return c.BrokerURL != ""
}

// Meta is the retained description of an online vehicle.
type Meta struct {
	VehicleID string    `json:"vehicle-id"`
	SessionID string    `json:"session-id"`
	Started   time.Time `json:"started"`
}

// Vehicle is the MQTT presence of the vehicle. The meta topic is
// retained while connected and cleared by the will when the connection
// is lost.
type Vehicle struct {
	Queue *Queue
	Meta  Meta

	metaJSON []byte
}

// NewVehicle creates the MQTT connection of a vehicle.
func NewVehicle(conf *Config, meta Meta) (*Vehicle, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(conf.BrokerURL)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(meta.VehicleID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("quadcop:" + meta.VehicleID)
	}
	v := &Vehicle{
		Queue:    NewQueue(opts, topicPrefix),
		Meta:     meta,
		metaJSON: metaJSON,
	}
	v.Queue.OnConnect = func(*Queue) { v.onConnected() }
	return v, nil
}

// Name implements framework.Named.
func (v *Vehicle) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable.
func (v *Vehicle) Run(ctx context.Context) error {
	v.Queue.Connect()
	<-ctx.Done()
	if v.Queue.Client.IsConnected() {
		v.Queue.PubWith(MetaTopic(v.Meta.VehicleID), nil, 1, true).WaitTimeout(time.Second)
	}
	return v.Queue.Close()
}

func (v *Vehicle) onConnected() {
	glog.Infof("vehicle %s online, session %s", v.Meta.VehicleID, v.Meta.SessionID)
	v.Queue.PubWith(MetaTopic(v.Meta.VehicleID), v.metaJSON, 1, true)
}
