package board

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// Port is one serial port found on the host, with the matched board when the
// USB identifiers are recognized.
type Port struct {
	Path   string
	VID    string
	PID    string
	Serial string
	Board  *Board
}

// Discover enumerates the host's serial ports. USB ports carry their VID/PID
// and, when recognized, a Board descriptor; legacy non-USB ports are listed
// with identity fields empty.
func Discover() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		p := Port{Path: d.Name}
		if d.IsUSB {
			p.VID = canonical(d.VID)
			p.PID = canonical(d.PID)
			p.Serial = d.SerialNumber
			if b, ok := Identify(d.VID, d.PID); ok {
				p.Board = &b
			}
		}
		ports = append(ports, p)
	}

	return ports, nil
}
