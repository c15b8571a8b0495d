package device

import (
	"fmt"
	"strconv"
)

// DeviceInfo describes the firmware and hardware identity of a board.
//
// Platform, Version and Machine come from os.uname(). The remaining fields
// come from auxiliary queries that not every port supports; a field whose
// query fails is left at its zero value.
type DeviceInfo struct {
	Platform   string
	Version    string
	Machine    string
	FlashSize  int64
	FreeMemory int64
	MAC        string
}

// Info queries the device identity. The os.uname() descriptor is required;
// flash size, free heap and MAC address are best-effort and degrade to zero
// values when the port lacks the backing module.
func (c *Client) Info() (*DeviceInfo, error) {
	res, err := c.run("import os\nprint(os.uname())")
	if err != nil {
		return nil, fmt.Errorf("query uname: %w", err)
	}

	fields := parseUname(lastLine(res.Output))
	info := &DeviceInfo{
		Platform: fields["sysname"],
		Version:  fields["release"],
		Machine:  fields["machine"],
	}

	if n, err := c.queryInt("import esp\nprint(esp.flash_size())"); err == nil {
		info.FlashSize = n
	} else {
		c.logger.Debug("flash size unavailable", "error", err)
	}

	if n, err := c.queryInt("import gc\nprint(gc.mem_free())"); err == nil {
		info.FreeMemory = n
	} else {
		c.logger.Debug("free memory unavailable", "error", err)
	}

	if res, err := c.run("import machine\nimport ubinascii\nprint(ubinascii.hexlify(machine.unique_id()).decode())"); err == nil {
		info.MAC = formatMAC(lastLine(res.Output))
	} else {
		c.logger.Debug("machine id unavailable", "error", err)
	}

	return info, nil
}

func (c *Client) queryInt(command string) (int64, error) {
	res, err := c.run(command)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(lastLine(res.Output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("device: non-numeric reply %q: %w", lastLine(res.Output), err)
	}

	return n, nil
}
