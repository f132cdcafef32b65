package flight

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/channels"
	"github.com/robotalks/quadcop/pkg/control"
)

// Defaults
const (
	DefaultPeriod                  = 50 * time.Millisecond
	DefaultPollTimeout             = 20 * time.Millisecond
	DefaultInitialThrottle         = 1450
	DefaultFailsafeThreshold       = 10
	DefaultMaxCommandsPerIteration = 8
)

// Config defines the control loop configuration.
type Config struct {
	Period      time.Duration
	PollTimeout time.Duration
	// InitialThrottle is written to the throttle lane on start.
	InitialThrottle int
	// FailsafeThreshold is the number of consecutive iterations without an
	// attitude sample tolerated before failsafe is forced.
	FailsafeThreshold       int
	MaxCommandsPerIteration int

	// Axis selects the stick driven by the digit setpoint: none, roll or pitch.
	Axis         string
	YawHold      bool
	AltitudeHold bool

	Yaw      control.YawConfig
	Altitude control.AltitudeConfig
}

var defaultConfig = Config{
	Period:                  DefaultPeriod,
	PollTimeout:             DefaultPollTimeout,
	InitialThrottle:         DefaultInitialThrottle,
	FailsafeThreshold:       DefaultFailsafeThreshold,
	MaxCommandsPerIteration: DefaultMaxCommandsPerIteration,
	Axis:                    control.AxisRoll.String(),
	Yaw:                     control.DefaultYawConfig(),
	Altitude:                control.DefaultAltitudeConfig(),
}

// Environment variables overriding the defaults.
const (
	EnvInitialThrottle   = "QUADCOP_INITIAL_THROTTLE"
	EnvPeriod            = "QUADCOP_PERIOD"
	EnvFailsafeThreshold = "QUADCOP_FAILSAFE_THRESHOLD"
	EnvAxis              = "QUADCOP_AXIS"
)

// ApplyEnv applies environment overrides to the defaults. It must be
// called before SetupFlags for flags to show the overridden defaults.
func ApplyEnv() {
	if val := os.Getenv(EnvInitialThrottle); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.InitialThrottle = n
		} else {
			glog.Warningf("ignore %s=%q: %v", EnvInitialThrottle, val, err)
		}
	}
	if val := os.Getenv(EnvPeriod); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.Period = d
		} else {
			glog.Warningf("ignore %s=%q: %v", EnvPeriod, val, err)
		}
	}
	if val := os.Getenv(EnvFailsafeThreshold); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.FailsafeThreshold = n
		} else {
			glog.Warningf("ignore %s=%q: %v", EnvFailsafeThreshold, val, err)
		}
	}
	if val := os.Getenv(EnvAxis); val != "" {
		defaultConfig.Axis = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Control loop period.")
	flag.DurationVar(&defaultConfig.PollTimeout, "poll-timeout", defaultConfig.PollTimeout, "Maximum wait for an attitude sample per iteration.")
	flag.IntVar(&defaultConfig.InitialThrottle, "initial-throttle", defaultConfig.InitialThrottle, "Throttle applied on start.")
	flag.IntVar(&defaultConfig.FailsafeThreshold, "failsafe-threshold", defaultConfig.FailsafeThreshold, "Consecutive iterations without attitude before failsafe.")
	flag.IntVar(&defaultConfig.MaxCommandsPerIteration, "max-commands", defaultConfig.MaxCommandsPerIteration, "Maximum command tokens applied per iteration.")
	flag.StringVar(&defaultConfig.Axis, "axis", defaultConfig.Axis, "Stick driven by the angle setpoint: none, roll or pitch.")
	flag.BoolVar(&defaultConfig.YawHold, "yaw-hold", defaultConfig.YawHold, "Hold the heading captured on start.")
	flag.BoolVar(&defaultConfig.AltitudeHold, "altitude-hold", defaultConfig.AltitudeHold, "Take off and hold altitude when started.")
	flag.Float64Var(&defaultConfig.Yaw.Gains.Kp, "yaw-kp", defaultConfig.Yaw.Gains.Kp, "Yaw proportional gain.")
	flag.Float64Var(&defaultConfig.Yaw.Gains.Td, "yaw-td", defaultConfig.Yaw.Gains.Td, "Yaw derivative time.")
	flag.BoolVar(&defaultConfig.Yaw.UseDerivative, "yaw-derivative", defaultConfig.Yaw.UseDerivative, "Enable the yaw derivative term.")
	flag.BoolVar(&defaultConfig.Yaw.WrapDegrees, "yaw-wrap", defaultConfig.Yaw.WrapDegrees, "Fold the heading error into (-180, 180].")
	flag.Float64Var(&defaultConfig.Altitude.Gains.Kp, "alt-kp", defaultConfig.Altitude.Gains.Kp, "Altitude proportional gain.")
	flag.Float64Var(&defaultConfig.Altitude.Gains.Ki, "alt-ki", defaultConfig.Altitude.Gains.Ki, "Altitude integral gain.")
	flag.Float64Var(&defaultConfig.Altitude.Gains.Kd, "alt-kd", defaultConfig.Altitude.Gains.Kd, "Altitude derivative gain.")
	flag.Float64Var(&defaultConfig.Altitude.RampFraction, "alt-ramp", defaultConfig.Altitude.RampFraction, "Takeoff/landing ramp step as a fraction of the ramp distance.")
	flag.Float64Var(&defaultConfig.Altitude.TakeoffAltitude, "takeoff-altitude", defaultConfig.Altitude.TakeoffAltitude, "Takeoff altitude (m).")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// AxisTest returns the parsed Axis.
func (c *Config) AxisTest() (control.AxisTest, error) {
	return control.ParseAxisTest(c.Axis)
}

// Validate checks the configuration. Errors wrap ErrConfig.
func (c *Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrConfig)
	}
	if c.PollTimeout <= 0 || c.PollTimeout >= c.Period {
		return fmt.Errorf("%w: poll timeout %v must be within (0, %v)", ErrConfig, c.PollTimeout, c.Period)
	}
	if c.InitialThrottle < channels.MinThrottle || c.InitialThrottle > channels.MaxCommand {
		return fmt.Errorf("%w: initial throttle %d out of [%d, %d]", ErrConfig,
			c.InitialThrottle, channels.MinThrottle, channels.MaxCommand)
	}
	if c.FailsafeThreshold < 1 {
		return fmt.Errorf("%w: failsafe threshold must be at least 1", ErrConfig)
	}
	if c.MaxCommandsPerIteration < 1 {
		return fmt.Errorf("%w: max commands must be at least 1", ErrConfig)
	}
	if _, err := c.AxisTest(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := control.NewYawController(c.Yaw); err != nil {
		return fmt.Errorf("%w: yaw: %v", ErrConfig, err)
	}
	if _, err := control.NewAltitudeController(c.Altitude); err != nil {
		return fmt.Errorf("%w: altitude: %v", ErrConfig, err)
	}
	return nil
}
