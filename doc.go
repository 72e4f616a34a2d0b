// Package linefollower drives a line following car with a steered front
// axle and a differential rear drive.
//
// A light sensor looks at the edge between a light and a dark surface. A
// PID controller turns the steering to keep the reading at the midpoint
// of the two surfaces, and the rear wheels follow the steering angle so
// the car turns without scrubbing.
//
// # Installation
//
//	go install github.com/gwillem/linefollower/cmd/linefollower@latest
//
// # Usage
//
// First, run setup to choose the ports, tune the steering range, check the
// motors, calibrate the light sensor and set the PID gains:
//
//	linefollower setup
//
// Then put the car on the line and start it:
//
//	linefollower run
//
// Press the touch sensor to stop. Without hardware, try it on the
// simulated track:
//
//	linefollower run --sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/linefollower: CLI with setup, calibrate, run, show, plot and ports commands
//   - pkg/pid: PID controller with a sample interval
//   - pkg/robot: steering, differential drive, calibration and configuration
//   - pkg/follower: line following control loop
//   - pkg/telemetry: run recording and plots
//   - pkg/hw: serial base board and Feetech steering servo
//   - pkg/sim: simulated track
package linefollower
