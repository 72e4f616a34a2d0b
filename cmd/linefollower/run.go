package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/linefollower/pkg/follower"
	"github.com/gwillem/linefollower/pkg/robot"
	"github.com/gwillem/linefollower/pkg/telemetry"
)

type RunCommand struct {
	Speed    int  `long:"speed" description:"Speed in percent, overrides the configuration"`
	Measures bool `long:"measures" description:"Record telemetry to the telemetry file"`
	Sim      bool `long:"sim" description:"Drive the simulated car instead of the hardware"`
	Plain    bool `long:"plain" description:"Print log lines instead of the live chart"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 2 // status row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Series shown on the chart
const (
	seriesFeedback = "feedback"
	seriesSetpoint = "setpoint"
)

var seriesColors = map[string]string{
	seriesFeedback: "46",  // green
	seriesSetpoint: "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type runModel struct {
	ctrl     *follower.Controller
	chart    *streamlinechart.Model
	width    int
	height   int
	state    follower.State
	logs     []string
	done     *runResult
	quitting bool
}

type runResult struct {
	summary follower.Summary
	err     error
}

// Messages from the controller
type stateMsg follower.State
type logMsg string
type doneMsg runResult

func waitForState(ctrl *follower.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *follower.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func initialRunModel(ctrl *follower.Controller) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 100),
	)
	for name, color := range seriesColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}
	return runModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.state = follower.State(msg)
		if m.state.Phase == follower.Running {
			m.chart.PushDataSet(seriesFeedback, float64(m.state.Feedback))
			m.chart.PushDataSet(seriesSetpoint, m.state.Setpoint)
			m.chart.DrawAll()
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case doneMsg:
		r := runResult(msg)
		m.done = &r
		return m, tea.Quit
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting || m.done != nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Line follower"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf(" - %s, speed %d", m.state.Phase, m.ctrl.Config().Speed)))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	st := m.state
	sb.WriteString(statusStyle.Render("output ") + valueStyle.Render(fmt.Sprintf("%7.1f", st.Output)))
	sb.WriteString(statusStyle.Render("  steering ") + valueStyle.Render(fmt.Sprintf("%5d", st.Angle)))
	sb.WriteString(statusStyle.Render("  left ") + valueStyle.Render(fmt.Sprintf("%6.1f", st.Drive.Left)))
	sb.WriteString(statusStyle.Render("  right ") + valueStyle.Render(fmt.Sprintf("%6.1f", st.Drive.Right)))
	sb.WriteString("\n\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press the touch sensor to stop, 'q' to abort")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{seriesFeedback, seriesSetpoint} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if c.Speed != 0 {
		cfg.Run.Speed = c.Speed
	}
	if c.Measures {
		cfg.Run.Measures = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	car, err := openCar(ctx, cfg, c.Sim)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer car.Close()

	// Calibrate before the chart takes over the terminal
	if !cfg.Calibration.IsCalibrated() {
		cal := robot.NewCalibrator(car.devices, car.clock)
		if _, err := cal.Run(ctx, car.vehicle); err != nil {
			return err
		}
		if car.track == nil {
			if err := car.save(); err != nil {
				return fmt.Errorf("save calibration: %w", err)
			}
		}
	}

	ctrl := follower.New(car.vehicle, car.devices, follower.ConfigFrom(cfg),
		follower.WithClock(car.clock),
		follower.WithSink(telemetry.FileSink{Path: cfg.Run.TelemetryPath}),
	)

	var result runResult
	if c.Plain {
		result = runPlain(ctx, ctrl)
	} else if result, err = runChart(ctx, ctrl); err != nil {
		printSummary(result.summary, cfg)
		return err
	}

	printSummary(result.summary, cfg)
	if result.err != nil && !errors.Is(result.err, context.Canceled) {
		return result.err
	}
	return nil
}

func runPlain(ctx context.Context, ctrl *follower.Controller) runResult {
	done := make(chan runResult, 1)
	go func() {
		summary, err := ctrl.Launch(ctx)
		done <- runResult{summary, err}
	}()

	for {
		select {
		case msg := <-ctrl.Logs():
			fmt.Println(msg)
		case r := <-done:
			// flush what is left
			for {
				select {
				case msg := <-ctrl.Logs():
					fmt.Println(msg)
				default:
					return r
				}
			}
		}
	}
}

func runChart(ctx context.Context, ctrl *follower.Controller) (runResult, error) {
	p := tea.NewProgram(initialRunModel(ctrl), tea.WithAltScreen())
	view := func() error {
		_, err := p.Run()
		return err
	}
	return launchWhile(ctx, ctrl, view, func(r runResult) { p.Send(doneMsg(r)) })
}

// launchWhile runs the control loop while view is open. Whatever view
// returns, the loop is cancelled and the car stopped before returning.
func launchWhile(ctx context.Context, ctrl *follower.Controller, view func() error, onDone func(runResult)) (runResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan runResult, 1)
	go func() {
		summary, err := ctrl.Launch(ctx)
		r := runResult{summary, err}
		done <- r
		if onDone != nil {
			onDone(r)
		}
	}()

	viewErr := view()

	// 'q' leaves the chart while the car may still be running
	cancel()
	r := <-done
	if viewErr != nil {
		return r, fmt.Errorf("run view: %w", viewErr)
	}
	return r, nil
}

func printSummary(s follower.Summary, cfg *robot.Config) {
	fmt.Println(titleStyle.Render("Run finished"))
	fmt.Printf("  Control periods: %d in %s\n", s.Loops, s.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Loop frequency:  %.2f Hz\n", s.Frequency)
	if cfg.Run.Measures {
		fmt.Printf("  Telemetry:       %d samples (%d dropped) in %s\n", s.Samples, s.Dropped, cfg.Run.TelemetryPath)
		fmt.Println(statusStyle.Render("  Plot it with: linefollower plot"))
	}
}
