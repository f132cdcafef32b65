// Package env provides the identity of the vehicle and of the current
// flight session, and loads .env files.
package env

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/rs/xid"
)

// EnvVehicleID overrides the machine derived vehicle ID.
const EnvVehicleID = "QUADCOP_VEHICLE_ID"

// appID salts the machine ID so it is not exposed verbatim on the network.
const appID = "quadcop"

// LoadDotEnv loads variables from files into the process environment.
// Variables already set are kept. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, fn := range files {
		if err := godotenv.Load(fn); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		glog.V(1).Infof("loaded %s", fn)
	}
	return nil
}

// VehicleID returns the ID identifying this vehicle, used in MQTT topics.
func VehicleID() string {
	if id := strings.TrimSpace(os.Getenv(EnvVehicleID)); id != "" {
		return id
	}
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine ID unavailable: %v", err)
		if id, err = os.Hostname(); err != nil {
			return "quadcop"
		}
		return id
	}
	return id[:12]
}

// NewSessionID returns a sortable, unique ID for a flight session.
func NewSessionID() string {
	return xid.New().String()
}
