// Package hw connects the car to its hardware: a base board on a serial
// line for the rear motors, the sensors and the LED, and a Feetech servo
// for the steering.
package hw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/gwillem/linefollower/pkg/robot"
)

// MaxDPS is the rear motor speed in degrees per second at 100 %.
const MaxDPS = 1040

// ErrBoard is wrapped by every error reply from the board.
var ErrBoard = errors.New("board error")

// Board talks to the base board with one text command per line:
//
//	D <left> <right>  run the rear motors, in degrees per second
//	X                 stop the rear motors
//	L                 read the light sensor, replies with an integer
//	T                 read the touch sensor, replies 0 or 1
//	E <led> <0|1>     switch an LED
//
// The board answers each command with OK, a value, or ERR <message>.
type Board struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader

	// LED is the LED toggled by SetIndicator.
	LED int
}

// OpenBoard opens the base board on a serial port.
func OpenBoard(portName string, baudRate int) (*Board, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	return NewBoard(port), nil
}

// NewBoard returns a board speaking over rw.
func NewBoard(rw io.ReadWriteCloser) *Board {
	return &Board{
		port:   rw,
		reader: bufio.NewReader(rw),
	}
}

// Close closes the serial connection.
func (b *Board) Close() error {
	return b.port.Close()
}

func (b *Board) command(ctx context.Context, format string, args ...any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	line := fmt.Sprintf(format, args...)
	if _, err := io.WriteString(b.port, line+"\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", line, err)
	}
	reply, err := b.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply to %q: %w", line, err)
	}
	reply = strings.TrimSpace(reply)
	if msg, ok := strings.CutPrefix(reply, "ERR"); ok {
		return "", fmt.Errorf("%s: %w: %s", line, ErrBoard, strings.TrimSpace(msg))
	}
	return reply, nil
}

func (b *Board) commandInt(ctx context.Context, cmd string) (int, error) {
	reply, err := b.command(ctx, "%s", cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("%s: unexpected reply %q", cmd, reply)
	}
	return v, nil
}

// DegreesPerSecond converts a normalized speed in [-100, 100] to motor
// degrees per second.
func DegreesPerSecond(speed float64) int {
	return int(math.Round(speed / robot.MaxSpeed * MaxDPS))
}

// Drive runs both rear motors.
func (b *Board) Drive(ctx context.Context, cmd robot.DriveCommand) error {
	_, err := b.command(ctx, "D %d %d", DegreesPerSecond(cmd.Left), DegreesPerSecond(cmd.Right))
	return err
}

// Stop stops both rear motors.
func (b *Board) Stop(ctx context.Context) error {
	_, err := b.command(ctx, "X")
	return err
}

// ReadIntensity reads the reflected light intensity.
func (b *Board) ReadIntensity(ctx context.Context) (int, error) {
	return b.commandInt(ctx, "L")
}

// IsTriggered reports whether the touch sensor is pressed.
func (b *Board) IsTriggered(ctx context.Context) (bool, error) {
	v, err := b.commandInt(ctx, "T")
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// SetIndicator switches the indicator LED.
func (b *Board) SetIndicator(ctx context.Context, on bool) error {
	state := 0
	if on {
		state = 1
	}
	_, err := b.command(ctx, "E %d %d", b.LED, state)
	return err
}

// Ports lists the serial ports on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
