package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"linefollower.json" description:"Configuration file (.json or .yaml)"`

	Setup     SetupCommand     `command:"setup" description:"Interactive setup: steering, motors, light sensor and PID gains"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Calibrate the light sensor on the light and dark surfaces"`
	Run       RunCommand       `command:"run" alias:"follow" description:"Follow the line until the touch sensor is pressed"`
	Show      ShowCommand      `command:"show" description:"Show the configuration"`
	Plot      PlotCommand      `command:"plot" description:"Plot recorded telemetry to a PNG file"`
	Ports     PortsCommand     `command:"ports" description:"List serial ports and the servos found on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "linefollower - PID line follower for a car with front steering and a differential rear drive"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
