package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/quadcop/pkg/actuator"
	"github.com/robotalks/quadcop/pkg/attitude/mavlink"
	"github.com/robotalks/quadcop/pkg/attitude/sim"
	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/command"
	"github.com/robotalks/quadcop/pkg/env"
	"github.com/robotalks/quadcop/pkg/flight"
	"github.com/robotalks/quadcop/pkg/framework"
	"github.com/robotalks/quadcop/pkg/joystick"
	"github.com/robotalks/quadcop/pkg/telemetry"
	"github.com/robotalks/quadcop/pkg/timeutil"
)

const sourceSim = "sim"

var flyOpts = struct {
	Source       string
	Endpoints    []string
	SystemID     uint8
	Actuator     string
	LogDir       string
	LogName      string
	HTTPAddr     string
	SimDropEvery int
	JitterReport time.Duration
	PublishEvery uint64
}{
	Source:       sourceSim,
	Endpoints:    []string{"udp://:14550"},
	SystemID:     255,
	Actuator:     sourceSim,
	LogDir:       ".",
	LogName:      "flight",
	JitterReport: 10 * time.Second,
	PublishEvery: 2,
}

var flyCmd = &cobra.Command{
	Use:   "fly",
	Short: "Run the control loop.",
	Long: `Run the control loop until interrupted. Command tokens are read from
stdin and, when a broker is configured, from the command topic of the
vehicle.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFly()
	},
}

func init() {
	f := flyCmd.Flags()
	f.StringVar(&flyOpts.Source, "source", flyOpts.Source, "Attitude source: sim or mavlink.")
	f.StringSliceVar(&flyOpts.Endpoints, "mavlink-endpoint", flyOpts.Endpoints, "MAVLink endpoint URLs.")
	f.Uint8Var(&flyOpts.SystemID, "mavlink-system-id", flyOpts.SystemID, "MAVLink system ID of this node.")
	f.StringVar(&flyOpts.Actuator, "actuator", flyOpts.Actuator, "Actuator link URL (serial://, tcp://, unix://) or sim.")
	f.StringVar(&flyOpts.LogDir, "log-dir", flyOpts.LogDir, "Directory of the flight log.")
	f.StringVar(&flyOpts.LogName, "log-name", flyOpts.LogName, "Name of the flight log.")
	f.StringVar(&flyOpts.HTTPAddr, "http", flyOpts.HTTPAddr, "Telemetry HTTP address, empty to disable.")
	f.IntVar(&flyOpts.SimDropEvery, "sim-drop-every", flyOpts.SimDropEvery, "Simulated attitude dropout every n reads.")
	f.DurationVar(&flyOpts.JitterReport, "jitter-report", flyOpts.JitterReport, "Interval of loop timing reports at -v=2.")
	f.Uint64Var(&flyOpts.PublishEvery, "publish-every", flyOpts.PublishEvery, "Publish every n-th record over MQTT.")
}

func runFly() (err error) {
	conf := flight.Default()
	if err := conf.Validate(); err != nil {
		return err
	}
	clock := timeutil.NewSystemClock()
	meta := mqtt.Meta{
		VehicleID: env.VehicleID(),
		SessionID: env.NewSessionID(),
		Started:   time.Now(),
	}

	// closers release what was opened if the loop never takes ownership.
	var closers []io.Closer
	defer func() {
		if err == nil {
			return
		}
		for n := len(closers) - 1; n >= 0; n-- {
			if cerr := closers[n].Close(); cerr != nil {
				glog.Warningf("cleanup error: %v", cerr)
			}
		}
	}()

	var runnables []framework.Runnable
	var airframe *sim.Airframe
	if flyOpts.Source == sourceSim || flyOpts.Actuator == sourceSim {
		simConf := sim.DefaultConfig()
		simConf.DropEvery = flyOpts.SimDropEvery
		airframe = sim.New(simConf, clock)
	}

	var source flight.AttitudeSource
	switch flyOpts.Source {
	case sourceSim:
		source = airframe
	case "mavlink":
		src, err := mavlink.New(mavlink.Config{Endpoints: flyOpts.Endpoints, SystemID: flyOpts.SystemID}, clock)
		if err != nil {
			return err
		}
		source = src
		closers = append(closers, src)
		runnables = append(runnables, src)
	default:
		return fmt.Errorf("%w: unknown attitude source %q", flight.ErrConfig, flyOpts.Source)
	}

	var transport flight.Transport
	if flyOpts.Actuator == sourceSim {
		transport = airframe
	} else {
		link, err := actuator.Open(flyOpts.Actuator)
		if err != nil {
			return fmt.Errorf("%w: %w", flight.ErrTransportFailure, err)
		}
		link.WriteTimeout = conf.PollTimeout
		transport = link
		closers = append(closers, link)
	}

	log, err := telemetry.CreateFlightLog(flyOpts.LogDir, flyOpts.LogName, conf.InitialThrottle)
	if err != nil {
		return err
	}
	closers = append(closers, log)
	glog.Infof("flight log %s", log.Path())

	commands := command.NewQueue()
	runnables = append(runnables, &command.Reader{R: os.Stdin, Queue: commands})
	if jsConf := joystick.Default(); jsConf.Enabled {
		pilot, err := jsConf.NewPilot(commands)
		if err != nil {
			return err
		}
		closers = append(closers, pilot.Device)
		runnables = append(runnables, pilot)
	}

	jitter := telemetry.NewJitter(0)
	if flyOpts.JitterReport > 0 {
		jitter.ReportEvery = uint64(flyOpts.JitterReport / conf.Period)
	}

	var sinks []flight.RecordSink
	if mqttConf := mqtt.Default(); mqttConf.Enabled() {
		vehicle, err := mqtt.NewVehicle(mqttConf, meta)
		if err != nil {
			return err
		}
		pub := telemetry.NewPublisher(vehicle.Queue, meta.VehicleID, meta.SessionID)
		pub.Every = flyOpts.PublishEvery
		sinks = append(sinks, pub)
		runnables = append(runnables,
			vehicle,
			&command.MQTTSource{MQ: vehicle.Queue, VehicleID: meta.VehicleID, Queue: commands},
			pub)
	}
	if flyOpts.HTTPAddr != "" {
		srv := telemetry.NewServer(flyOpts.HTTPAddr, meta.VehicleID, meta.SessionID)
		srv.Jitter = jitter
		sinks = append(sinks, srv)
		runnables = append(runnables, srv)
	}

	sched, err := flight.NewScheduler(conf, flight.Deps{
		Clock:     clock,
		Source:    source,
		Transport: transport,
		Commands:  commands,
		Log:       log,
		Sinks:     sinks,
	})
	if err != nil {
		return err
	}
	loop := sched.NewLoop().AddRunnable(runnables...).AddObserver(jitter)
	// the loop shuts the scheduler and its runnables down from here on
	closers = nil

	glog.Infof("vehicle %s session %s: period %v, initial throttle %d",
		meta.VehicleID, meta.SessionID, conf.Period, conf.InitialThrottle)
	err = framework.NewRunner().HandleSignals().Go(loop).Wait()
	s := jitter.Summary()
	glog.Infof("loop timing: mean %v stddev %v p99 %v max %v overruns %d",
		s.Mean, s.StdDev, s.P99, s.Max, s.Overruns)
	return err
}
