// Package sh is the interactive ground console: it discovers vehicles on
// the broker, sends command tokens and shows their telemetry.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/flight"
	"github.com/robotalks/quadcop/pkg/telemetry"
)

// DefaultDiscoverTimeout bounds the wait for retained vehicle metas.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *mqtt.Config
	MQ     *mqtt.Queue

	lock      sync.Mutex
	vehicle   string
	telemetry *mqtt.Subscription
	latest    *telemetry.Frame
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool
	vehicleID  string

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&StatusCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&vehicleID, "vehicle", vehicleID, "Vehicle to connect on start.")
}

// AddCmds adds more commands, used during init.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *mqtt.Config) (*Shell, error) {
	mq, err := mqtt.NewQueueFromURL(conf.BrokerURL)
	if err != nil {
		return nil, err
	}
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Config:      conf,
		MQ:          mq,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Vehicle returns the connected vehicle, empty if none.
func (s *Shell) Vehicle() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.vehicle
}

// Latest returns the last telemetry frame received.
func (s *Shell) Latest() *telemetry.Frame {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.latest
}

// Discover collects the retained metas of online vehicles.
func (s *Shell) Discover(ctx context.Context, timeout time.Duration) ([]mqtt.Meta, error) {
	metaCh := make(chan mqtt.Meta, 16)
	sub := s.MQ.Sub("+/meta", func(topic string, payload []byte) {
		var meta mqtt.Meta
		if len(payload) == 0 || json.Unmarshal(payload, &meta) != nil {
			return
		}
		select {
		case metaCh <- meta:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	found := make(map[string]mqtt.Meta)
	deadline := time.After(timeout)
	for {
		select {
		case meta := <-metaCh:
			found[meta.VehicleID] = meta
		case <-deadline:
			metas := make([]mqtt.Meta, 0, len(found))
			for _, meta := range found {
				metas = append(metas, meta)
			}
			sort.Slice(metas, func(i, j int) bool { return metas[i].VehicleID < metas[j].VehicleID })
			return metas, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Connect selects the vehicle receiving commands and subscribes to its telemetry.
func (s *Shell) Connect(vehicle string) {
	s.Disconnect()
	sub := s.MQ.Sub(mqtt.TelemetryTopic(vehicle), s.handleTelemetry)
	s.lock.Lock()
	s.vehicle, s.telemetry, s.latest = vehicle, sub, nil
	s.lock.Unlock()
	s.setPrompt(vehicle + " > ")
}

// Disconnect drops the current vehicle.
func (s *Shell) Disconnect() {
	s.lock.Lock()
	sub := s.telemetry
	s.vehicle, s.telemetry = "", nil
	s.lock.Unlock()
	if sub != nil {
		sub.Close()
	}
	s.setPrompt(unconnectedPrompt)
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Send publishes command tokens to the connected vehicle.
func (s *Shell) Send(tokens []byte) error {
	vehicle := s.Vehicle()
	if vehicle == "" {
		return fmt.Errorf("not connected")
	}
	token := s.MQ.PubWith(mqtt.CommandTopic(vehicle), tokens, 1, false)
	if !token.WaitTimeout(time.Second) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

func (s *Shell) handleTelemetry(topic string, payload []byte) {
	f, err := telemetry.UnmarshalFrame(payload)
	if err != nil {
		glog.V(1).Infof("bad telemetry on %s: %v", topic, err)
		return
	}
	s.lock.Lock()
	s.latest = f
	s.lock.Unlock()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	if token := s.MQ.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer s.MQ.Close()

	if vehicleID != "" {
		s.Connect(vehicleID)
	}
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

// TokensFor translates a console command into command tokens.
func TokensFor(name string, args []string) ([]byte, error) {
	switch name {
	case "arm":
		return []byte{flight.TokenArm}, nil
	case "disarm":
		return []byte{flight.TokenDisarm}, nil
	case "start":
		return []byte{flight.TokenStart}, nil
	case "stop":
		return []byte{flight.TokenStop}, nil
	case "neutral":
		return []byte{flight.TokenNeutral}, nil
	case "negate":
		return []byte{flight.TokenToggleNegative}, nil
	case "failsafe":
		if len(args) > 0 && (args[0] == "off" || args[0] == "clear") {
			return []byte{flight.TokenFailsafeClear}, nil
		}
		return []byte{flight.TokenFailsafeSet}, nil
	case "angle":
		if len(args) != 1 || len(args[0]) != 1 {
			return nil, fmt.Errorf("angle expects one digit")
		}
		if _, ok := flight.AngleSetpoint(args[0][0]); !ok {
			return nil, fmt.Errorf("angle expects one digit")
		}
		return []byte(args[0]), nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func tokenCmd(name string, aliases []string, help string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: aliases,
		Help:    help,
		Func: func(c *ishell.Context) {
			tokens, err := TokensFor(name, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Send(tokens); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
}

func init() {
	AddCmds(
		tokenCmd("arm", nil, "arm preset"),
		tokenCmd("disarm", nil, "disarm preset"),
		tokenCmd("start", []string{"s"}, "start with the initial throttle"),
		tokenCmd("stop", []string{"p"}, "stop, throttle to neutral"),
		tokenCmd("neutral", []string{"b"}, "all channels neutral"),
		tokenCmd("negate", []string{"n"}, "toggle the sign of angle setpoints"),
		tokenCmd("failsafe", []string{"fs"}, "[on|off]"),
		tokenCmd("angle", []string{"a"}, "DIGIT"),
	)
}

var (
	// DiscoverCmd lists online vehicles.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			metas, err := s.Discover(context.Background(), DefaultDiscoverTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				out, err := json.Marshal(metas)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(metas) == 0 {
				c.Println("No vehicles found")
				return
			}
			for _, meta := range metas {
				c.Printf("%s: session %s since %s\n", meta.VehicleID, meta.SessionID, meta.Started.Format(time.RFC3339))
			}
		},
	}

	// ConnectCmd selects a vehicle.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[VEHICLE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Connect(c.Args[0])
				return
			}
			metas, err := s.Discover(context.Background(), DefaultDiscoverTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			switch {
			case len(metas) == 0:
				c.Err(fmt.Errorf("no vehicle discovered"))
			case len(metas) == 1:
				s.Connect(metas[0].VehicleID)
			case !s.Interactive:
				c.Err(fmt.Errorf("more than 1 vehicles discovered in non-interactive mode"))
			default:
				items := make([]string, len(metas))
				for n, meta := range metas {
					items[n] = meta.VehicleID
				}
				s.Connect(metas[s.Shell.MultiChoice(items, "Which one to connect?")].VehicleID)
			}
		},
	}

	// DisconnectCmd drops the current vehicle.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends raw command tokens.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "TOKENS",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Send([]byte(strings.Join(c.Args, ""))); err != nil {
				c.Err(err)
			}
		},
	}

	// StatusCmd prints the latest telemetry.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			f := s.Latest()
			if f == nil {
				c.Err(fmt.Errorf("no telemetry"))
				return
			}
			if s.OutputJSON {
				out, err := json.Marshal(f)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Println(FormatFrame(f))
		},
	}
)

// FormatFrame prints a telemetry frame for display.
func FormatFrame(f *telemetry.Frame) string {
	return fmt.Sprintf("#%d %s roll=%.2f pitch=%.2f yaw=%.2f alt=%.2f channels=%v",
		f.Iteration, f.Status, f.Roll, f.Pitch, f.Yaw, f.Altitude, f.Channels)
}

// Main is a helper to provide a single call in main.
func Main() error {
	flag.Parse()
	conf := mqtt.Default()
	if !conf.Enabled() {
		return fmt.Errorf("broker URL required, set -mqtt or %s", mqtt.EnvBrokerURL)
	}
	s, err := New(conf)
	if err != nil {
		return err
	}
	return s.Run(flag.Args()...)
}
