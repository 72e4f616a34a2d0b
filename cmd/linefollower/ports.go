package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/linefollower/pkg/hw"
)

type PortsCommand struct {
	MaxID int `long:"max-id" default:"10" description:"Highest servo ID to scan for"`
}

type portInfo struct {
	name   string
	servos []feetech.FoundServo
}

func (c *PortsCommand) Execute(args []string) error {
	ports := scanPortsUpTo(c.MaxID)
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	for _, p := range ports {
		if len(p.servos) == 0 {
			fmt.Printf("  %s\n", p.name)
			continue
		}
		ids := make([]string, 0, len(p.servos))
		for _, s := range p.servos {
			ids = append(ids, fmt.Sprintf("%d", s.ID))
		}
		fmt.Printf("  %s %s\n", p.name, successStyle.Render("servo "+strings.Join(ids, ", ")))
	}
	return nil
}

func scanPorts() []portInfo {
	return scanPortsUpTo(10)
}

// scanPortsUpTo lists the serial ports and looks for Feetech servos with
// IDs 1 to maxID on each of them.
func scanPortsUpTo(maxID int) []portInfo {
	names, err := hw.Ports()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var ports []portInfo
	for _, name := range names {
		// Skip Bluetooth ports on macOS
		if strings.Contains(name, "Bluetooth") {
			continue
		}
		ports = append(ports, portInfo{name: name, servos: findServos(name, maxID)})
	}
	return ports
}

func findServos(port string, maxID int) []feetech.FoundServo {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	servos, err := bus.Scan(ctx, 1, maxID)
	if err != nil {
		return nil
	}
	return servos
}
