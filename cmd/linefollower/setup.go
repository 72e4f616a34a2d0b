package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/linefollower/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Sim bool `long:"sim" description:"Set up the simulated car"`
}

const (
	menuSteering  = "steering"
	menuMotors    = "motors"
	menuLight     = "light"
	menuPID       = "pid"
	menuShow      = "show"
	menuRun       = "run"
	menuSaveQuit  = "save"
	menuQuit      = "quit"
	checkDuration = time.Second
)

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Line follower setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !c.Sim && (cfg.Board.Port == "" || cfg.Steering.Port == "") {
		if err := choosePorts(cfg); err != nil {
			return err
		}
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save configuration: %w", err)
		}
	}

	car, err := openCar(ctx, cfg, c.Sim)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer car.Close()

	for {
		choice, err := setupMenu()
		if err != nil {
			fmt.Println()
			return nil
		}

		switch choice {
		case menuSteering:
			err = tuneSteering(ctx, car)
		case menuMotors:
			err = checkMotors(ctx, car)
		case menuLight:
			err = calibrateLight(ctx, car)
		case menuPID:
			err = editGains(car)
		case menuShow:
			car.cfg.Capture(car.vehicle)
			printConfig(car.cfg)
		case menuRun:
			if car.track == nil {
				if err := car.save(); err != nil {
					return fmt.Errorf("save configuration: %w", err)
				}
			}
			car.Close()
			run := RunCommand{Sim: c.Sim}
			return run.Execute(nil)
		case menuSaveQuit:
			if car.track != nil {
				return nil
			}
			if err := car.save(); err != nil {
				return fmt.Errorf("save configuration: %w", err)
			}
			fmt.Println(successStyle.Render("Configuration saved to " + opts.Config))
			return nil
		case menuQuit:
			return nil
		}

		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}
}

func setupMenu() (string, error) {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What do you want to do?").
				Options(
					huh.NewOption("Tune the steering", menuSteering),
					huh.NewOption("Check the rear motors", menuMotors),
					huh.NewOption("Calibrate the light sensor", menuLight),
					huh.NewOption("Set the PID gains", menuPID),
					huh.NewOption("Show the configuration", menuShow),
					huh.NewOption("Save and follow the line", menuRun),
					huh.NewOption("Save and quit", menuSaveQuit),
					huh.NewOption("Quit without saving", menuQuit),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

// choosePorts asks which serial port is the base board and which the
// steering servo bus.
func choosePorts(cfg *robot.Config) error {
	ports := scanPorts()
	if len(ports) == 0 {
		return errors.New("no serial ports found, make sure the car is connected and powered on")
	}

	var options []huh.Option[string]
	for _, p := range ports {
		label := p.name
		if len(p.servos) > 0 {
			label += fmt.Sprintf(" (servo %d)", p.servos[0].ID)
		}
		options = append(options, huh.NewOption(label, p.name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the base board?").
				Description("Rear motors, light and touch sensors").
				Options(options...).
				Value(&cfg.Board.Port),
			huh.NewSelect[string]().
				Title("Which port is the steering servo?").
				Options(options...).
				Value(&cfg.Steering.Port),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	for _, p := range ports {
		if p.name == cfg.Steering.Port && len(p.servos) > 0 {
			cfg.Steering.ServoID = p.servos[0].ID
		}
	}
	return nil
}

// tuneSteering lets the operator try steering motor angles, pick the
// maximum and measure the wheel angle it gives, which sets the divider.
func tuneSteering(ctx context.Context, car *car) error {
	fmt.Println(subHeaderStyle.Render("━━━ Steering range ━━━"))
	fmt.Println("Try steering motor angles until the wheels reach their stop.")
	fmt.Println()

	steering := car.vehicle.Steering
	defer steering.Turn(context.WithoutCancel(ctx), 0, 100)

	maxAngle := steering.MaxAngle()
	for {
		value := strconv.Itoa(maxAngle)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Steering motor angle to try (degrees)").
					Description("Leave empty when done").
					Value(&value).
					Validate(validateOptionalInt),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if strings.TrimSpace(value) == "" {
			break
		}
		angle, _ := strconv.Atoi(strings.TrimSpace(value))
		if err := steering.Sweep(ctx, angle, 100, showSteering(car)); err != nil {
			return err
		}

		var keep bool
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Use %d as the maximum steering angle?", abs(angle))).
					Affirmative("Yes").
					Negative("Try another").
					Value(&keep),
			),
		)
		if err := confirm.Run(); err != nil {
			return err
		}
		if keep {
			maxAngle = abs(angle)
			break
		}
	}
	steering.SetMaxAngle(maxAngle)
	if maxAngle == 0 {
		return nil
	}

	wheel := ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Wheel angle at %d motor degrees", maxAngle)).
				Description("Measured on the front wheels, in degrees").
				Value(&wheel).
				Validate(validatePositiveFloat),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	wheelAngle, _ := strconv.ParseFloat(strings.TrimSpace(wheel), 64)
	steering.SetDivider(float64(maxAngle) / wheelAngle)

	fmt.Printf("Maximum steering angle %d, divider %.2f\n", maxAngle, steering.Divider())
	return nil
}

// showSteering waits at a sweep stop and prints the commanded angle next
// to the one the servo reports.
func showSteering(car *car) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := car.clock.Sleep(ctx, checkDuration); err != nil {
			return err
		}
		s := car.vehicle.Steering
		actual, err := s.ActualAngle(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  steering motor %5d: servo at %5d\n", s.Angle(), actual)
		return nil
	}
}

// checkMotors sweeps each rear motor from 0 to 100 %, swings the steering
// to both stops and then drives with the differential at both stops.
func checkMotors(ctx context.Context, car *car) error {
	fmt.Println(subHeaderStyle.Render("━━━ Motor check ━━━"))
	if err := car.devices.Confirm.WaitForConfirm(ctx, "Lift the rear wheels off the ground."); err != nil {
		return err
	}
	drive := car.devices.Drive
	defer drive.Stop(context.WithoutCancel(ctx))

	v := car.vehicle
	for _, motor := range robot.AllMotors() {
		if motor == robot.SteeringMotor {
			if v.Steering.MaxAngle() == 0 {
				fmt.Println(dimStyle.Render("  Tune the steering first to check it."))
				continue
			}
			if err := v.Steering.Sweep(ctx, v.Steering.MaxAngle(), 100, showSteering(car)); err != nil {
				return err
			}
			continue
		}

		for speed := 0; speed <= 100; speed += 25 {
			cmd := robot.DriveCommand{Scale: 1}
			s := robot.ToDriveFrame(float64(speed))
			if motor == robot.LeftMotor {
				cmd.Left = s
			} else {
				cmd.Right = s
			}
			fmt.Printf("  %-8s %3d %%\n", motor, speed)
			if err := drive.Drive(ctx, cmd); err != nil {
				return err
			}
			if err := car.clock.Sleep(ctx, checkDuration); err != nil {
				return err
			}
		}
		if err := drive.Stop(ctx); err != nil {
			return err
		}
	}

	if v.Steering.MaxAngle() == 0 || v.CheckDivider() != nil {
		fmt.Println(dimStyle.Render("  Tune the steering first to check the differential."))
		return nil
	}
	defer v.Steering.Turn(context.WithoutCancel(ctx), 0, 100)
	for _, angle := range []int{v.Steering.MaxAngle(), -v.Steering.MaxAngle()} {
		if err := v.Steering.Turn(ctx, angle, 100); err != nil {
			return err
		}
		cmd, err := v.Run(ctx, 50, true)
		if err != nil {
			return err
		}
		fmt.Printf("  steering %5d: left %6.1f right %6.1f\n", angle, cmd.Left, cmd.Right)
		if err := car.clock.Sleep(ctx, 2*checkDuration); err != nil {
			return err
		}
	}
	return nil
}

// calibrateLight calibrates surfaces one at a time until the operator is
// done.
func calibrateLight(ctx context.Context, car *car) error {
	fmt.Println(subHeaderStyle.Render("━━━ Light sensor ━━━"))
	cal := robot.NewCalibrator(car.devices, car.clock)
	for {
		printCalibration(car.vehicle)

		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which surface?").
					Options(
						huh.NewOption("Light", robot.Light.String()),
						huh.NewOption("Dark", robot.Dark.String()),
						huh.NewOption("Done", ""),
					).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if choice == "" {
			return nil
		}
		zone, err := robot.ParseZone(choice)
		if err != nil {
			return err
		}
		if _, err := cal.CalibrateZone(ctx, car.vehicle, zone); err != nil {
			return err
		}
	}
}

// editGains asks for the PID gains with the current values as defaults.
func editGains(car *car) error {
	kp, ki, kd := car.vehicle.PID.Gains()
	values := []string{formatFloat(kp), formatFloat(ki), formatFloat(kd)}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Kp").Value(&values[0]).Validate(validateFloat),
			huh.NewInput().Title("Ki").Value(&values[1]).Validate(validateFloat),
			huh.NewInput().Title("Kd").Value(&values[2]).Validate(validateFloat),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	gains := make([]float64, len(values))
	for i, s := range values {
		gains[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	car.vehicle.PID.Configure(gains[0], gains[1], gains[2])
	fmt.Printf("Kp %s, Ki %s, Kd %s\n", values[0], values[1], values[2])
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func validateFloat(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("not a number")
	}
	return nil
}

func validatePositiveFloat(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return errors.New("enter a positive number")
	}
	return nil
}

func validateOptionalInt(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("enter whole degrees")
	}
	return nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
