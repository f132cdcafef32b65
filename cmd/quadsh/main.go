package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/quadcop/pkg/cli/sh"
	"github.com/robotalks/quadcop/pkg/comm/mqtt"
	"github.com/robotalks/quadcop/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	if err := env.LoadDotEnv(); err != nil {
		glog.Warningf("load .env error: %v", err)
	}
	mqtt.ApplyEnv()
	mqtt.SetupFlags()
	sh.SetupFlags()
}

func main() {
	if err := sh.Main(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
