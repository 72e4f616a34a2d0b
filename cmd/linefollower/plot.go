package main

import (
	"fmt"
	"os"

	"github.com/gwillem/linefollower/pkg/telemetry"
)

type PlotCommand struct {
	Input  string `short:"i" long:"input" description:"Telemetry file, defaults to the configured one"`
	Output string `short:"o" long:"output" default:"telemetry.png" description:"PNG file to write"`
}

func (c *PlotCommand) Execute(args []string) error {
	input := c.Input
	if input == "" {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		input = cfg.Run.TelemetryPath
	}

	rec, err := telemetry.Load(input)
	if err != nil {
		return err
	}
	if err := telemetry.PlotPNG(rec, c.Output); err != nil {
		return err
	}

	fmt.Printf("Run %s of %s: %d samples", rec.RunID, rec.Started.Format("2006-01-02 15:04:05"), len(rec.Samples))
	if rec.Dropped > 0 {
		fmt.Printf(", %d oldest dropped", rec.Dropped)
	}
	fmt.Println()
	fmt.Println(successStyle.Render("Plot saved to " + c.Output))
	return nil
}
