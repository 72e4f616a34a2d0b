package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/linefollower/pkg/robot"
)

type CalibrateCommand struct {
	Zone string `long:"zone" choice:"light" choice:"dark" description:"Calibrate only one surface"`
	Sim  bool   `long:"sim" description:"Calibrate the simulated car"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	car, err := openCar(ctx, cfg, c.Sim)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer car.Close()

	fmt.Println(headerStyle.Render("Light sensor calibration"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cal := robot.NewCalibrator(car.devices, car.clock)
	if c.Zone != "" {
		zone, err := robot.ParseZone(c.Zone)
		if err != nil {
			return err
		}
		if _, err := cal.CalibrateZone(ctx, car.vehicle, zone); err != nil {
			return err
		}
	} else if _, err := cal.Run(ctx, car.vehicle); err != nil {
		return err
	}

	printCalibration(car.vehicle)
	if car.track != nil {
		return nil
	}
	if err := car.save(); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	return nil
}

func printCalibration(v *robot.Vehicle) {
	for _, zone := range []robot.Zone{robot.Light, robot.Dark} {
		if value, ok := v.Zone(zone); ok {
			fmt.Printf("  %-9s %d\n", zone.String()+":", value)
		} else {
			fmt.Printf("  %-9s %s\n", zone.String()+":", dimStyle.Render("not measured"))
		}
	}
	if threshold, err := v.Threshold(); err == nil {
		fmt.Println(successStyle.Render(fmt.Sprintf("  Setpoint: %d", threshold)))
	}
}
