package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/linefollower/pkg/robot"
)

type ShowCommand struct{}

func (c *ShowCommand) Execute(args []string) error {
	if !robot.ConfigExists(opts.Config) {
		fmt.Fprintf(os.Stderr, "No configuration found at %s. Run 'linefollower setup' first.\n", opts.Config)
		os.Exit(1)
	}
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	printConfig(cfg)
	return nil
}

func printConfig(cfg *robot.Config) {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableKeyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableMissingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	light, dark := "not measured", "not measured"
	if cfg.Calibration.Light != nil {
		light = strconv.Itoa(*cfg.Calibration.Light)
	}
	if cfg.Calibration.Dark != nil {
		dark = strconv.Itoa(*cfg.Calibration.Dark)
	}
	setpoint := "-"
	if cfg.Calibration.IsCalibrated() {
		setpoint = strconv.Itoa(robot.Threshold(*cfg.Calibration.Light, *cfg.Calibration.Dark))
	}
	divider := formatFloat(cfg.Steering.Divider)
	if cfg.Steering.Divider == 0 {
		divider = "not set"
	}

	rows := [][]string{
		{"name", cfg.Name},
		{"base board", fmt.Sprintf("%s @ %d", cfg.Board.Port, cfg.Board.BaudRate)},
		{"steering servo", fmt.Sprintf("%s @ %d, id %d", cfg.Steering.Port, cfg.Steering.BaudRate, cfg.Steering.ServoID)},
		{"max steering angle", strconv.Itoa(cfg.Steering.MaxAngle)},
		{"divider", divider},
		{"wheelbase / track", fmt.Sprintf("%s / %s", formatFloat(cfg.Geometry.Wheelbase), formatFloat(cfg.Geometry.TrackWidth))},
		{"kp / ki / kd", fmt.Sprintf("%s / %s / %s", formatFloat(cfg.PID.Kp), formatFloat(cfg.PID.Ki), formatFloat(cfg.PID.Kd))},
		{"sample interval", cfg.PID.SampleInterval().String()},
		{"light", light},
		{"dark", dark},
		{"setpoint", setpoint},
		{"speed", strconv.Itoa(cfg.Run.Speed)},
		{"telemetry", fmt.Sprintf("%t, %s", cfg.Run.Measures, cfg.Run.TelemetryPath)},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Setting", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableKeyStyle
			}
			if row >= 0 && row < len(rows) {
				switch rows[row][1] {
				case "not measured", "not set":
					return tableMissingStyle
				}
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
}
