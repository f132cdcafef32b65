package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/env"
	"github.com/robotalks/quadcop/pkg/flight"
	"github.com/robotalks/quadcop/pkg/joystick"
)

// version is set by -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "quadcop",
	Short: "Fixed period flight control loop for a quadrotor.",
	Long: `quadcop reads attitude, runs the heading and altitude controllers,
applies single character commands and drives the radio channels of a
quadrotor at a fixed period. Every iteration is logged to a flight log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its flags from the standard flag set.
		return flag.CommandLine.Parse(nil)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version)
	},
}

func init() {
	if err := env.LoadDotEnv(); err != nil {
		glog.Warningf("load .env error: %v", err)
	}
	flight.ApplyEnv()
	mqtt.ApplyEnv()
	flight.SetupFlags()
	mqtt.SetupFlags()
	joystick.SetupFlags()
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(versionCmd, flyCmd)
}

func main() {
	atexit.Register(glog.Flush)
	code := 0
	if err := rootCmd.Execute(); err != nil {
		code = 1
	}
	atexit.Exit(code)
}
