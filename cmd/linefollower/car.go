package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/linefollower/pkg/hw"
	"github.com/gwillem/linefollower/pkg/robot"
	"github.com/gwillem/linefollower/pkg/sim"
)

// car is an opened vehicle with its devices.
type car struct {
	cfg     *robot.Config
	vehicle *robot.Vehicle
	devices robot.Devices
	clock   robot.Clock
	track   *sim.Track // set on the simulated track
	closers []io.Closer
}

// loadConfig reads the configuration file, or returns the defaults when
// there is none yet.
func loadConfig() (*robot.Config, error) {
	if !robot.ConfigExists(opts.Config) {
		return robot.DefaultConfig(), nil
	}
	return robot.LoadConfigFrom(opts.Config)
}

func openCar(ctx context.Context, cfg *robot.Config, simulate bool) (*car, error) {
	c := &car{cfg: cfg, clock: robot.SystemClock{}}

	if simulate {
		track := sim.NewTrack()
		track.Geometry = cfg.Geometry
		if cfg.Steering.Divider != 0 {
			track.Divider = cfg.Steering.Divider
		}
		c.track = track
		c.devices = track.Devices()
		c.devices.Announcer = hw.Console{Out: os.Stdout}
	} else {
		if cfg.Board.Port == "" || cfg.Steering.Port == "" {
			return nil, errors.New("ports not configured, run 'linefollower setup' first")
		}
		board, err := hw.OpenBoard(cfg.Board.Port, cfg.Board.BaudRate)
		if err != nil {
			return nil, fmt.Errorf("base board: %w", err)
		}
		c.closers = append(c.closers, board)

		steering, err := hw.OpenSteering(ctx, cfg.Steering)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("steering: %w", err)
		}
		c.closers = append(c.closers, steering)

		c.devices = robot.Devices{
			Light:     board,
			Touch:     board,
			Drive:     board,
			Steering:  steering,
			Indicator: board,
			Confirm:   formConfirmer{},
			Announcer: newAnnouncer(),
		}
	}

	c.vehicle = robot.NewVehicle(cfg.Name, c.devices.Drive, c.devices.Steering)
	cfg.Apply(c.vehicle)
	return c, nil
}

// Close stops the car and releases the devices.
func (c *car) Close() error {
	var errs []error
	if c.vehicle != nil {
		errs = append(errs, c.vehicle.Stop(context.Background()))
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.vehicle, c.closers = nil, nil
	return errors.Join(errs...)
}

// save stores the tunable vehicle state in the configuration file.
func (c *car) save() error {
	c.cfg.Capture(c.vehicle)
	return c.cfg.SaveTo(opts.Config)
}

func newAnnouncer() robot.Announcer {
	if e := hw.NewEspeak(""); e != nil {
		return e
	}
	return hw.Console{Out: os.Stdout}
}

// formConfirmer asks the operator to confirm with a huh form.
type formConfirmer struct{}

func (formConfirmer) WaitForConfirm(ctx context.Context, prompt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	return ctx.Err()
}
