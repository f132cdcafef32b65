// Package joystick turns gamepad buttons into command tokens.
package joystick

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/framework"
)

// DefaultButtons maps button indices to command tokens.
const DefaultButtons = "0=S,1=P,2=b,3=F,4=f,5=n,6=A,7=D"

// Config defines the joystick input.
type Config struct {
	Enabled bool
	// DeviceIndex selects /dev/input/js<n>, -1 for auto detection.
	DeviceIndex int
	Buttons     string
	Verbose     bool
}

var defaultConfig = Config{
	DeviceIndex: -1,
	Buttons:     DefaultButtons,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&defaultConfig.Enabled, "joystick", defaultConfig.Enabled, "Read commands from a joystick.")
	flag.IntVar(&defaultConfig.DeviceIndex, "joystick-device", defaultConfig.DeviceIndex, "Joystick device index, -1 for auto detection.")
	flag.StringVar(&defaultConfig.Buttons, "joystick-buttons", defaultConfig.Buttons, "Button to command token mapping.")
	flag.BoolVar(&defaultConfig.Verbose, "joystick-verbose", defaultConfig.Verbose, "Print joystick events.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// ParseButtons parses a mapping like "0=S,1=P".
func ParseButtons(str string) (map[int]byte, error) {
	buttons := make(map[int]byte)
	for _, item := range strings.Split(str, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idx, token, ok := strings.Cut(item, "=")
		if !ok || len(token) != 1 {
			return nil, fmt.Errorf("invalid button mapping %q", item)
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid button index %q", idx)
		}
		buttons[n] = token[0]
	}
	return buttons, nil
}

// TokenPoster accepts command tokens.
type TokenPoster interface {
	Post(tokens []byte) int
}

// Pilot posts the token mapped to each pressed button.
type Pilot struct {
	Device  Device
	Buttons map[int]byte
	Queue   TokenPoster
	Verbose bool
}

// NewPilot opens the configured device.
func (c *Config) NewPilot(queue TokenPoster) (*Pilot, error) {
	buttons, err := ParseButtons(c.Buttons)
	if err != nil {
		return nil, err
	}
	var dev Device
	if c.DeviceIndex < 0 {
		dev, err = DetectAndOpen(0)
	} else {
		dev, err = Open(c.DeviceIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("open joystick error: %w", err)
	}
	glog.Infof("joystick %q, buttons %s", dev.Name(), formatButtons(buttons))
	return &Pilot{Device: dev, Buttons: buttons, Queue: queue, Verbose: c.Verbose}, nil
}

// Name implements framework.Named.
func (p *Pilot) Name() string {
	return "joystick"
}

// Run implements framework.Runnable.
func (p *Pilot) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, p.Device, func() error {
		for {
			ev, err := p.Device.ReadEvent()
			if err != nil {
				return err
			}
			p.HandleEvent(ev)
		}
	})
}

// HandleEvent posts the token of a pressed button. Initial state events
// are ignored so a button held on startup does not fire.
func (p *Pilot) HandleEvent(ev Event) {
	if p.Verbose {
		glog.Infof("joystick event %+v", ev)
	}
	if ev.Init || !ev.Pressed() {
		return
	}
	if token, ok := p.Buttons[ev.Index]; ok {
		p.Queue.Post([]byte{token})
	}
}

func formatButtons(buttons map[int]byte) string {
	indices := make([]int, 0, len(buttons))
	for n := range buttons {
		indices = append(indices, n)
	}
	sort.Ints(indices)
	items := make([]string, len(indices))
	for i, n := range indices {
		items[i] = fmt.Sprintf("%d=%c", n, buttons[n])
	}
	return strings.Join(items, ",")
}
