// Package board identifies MicroPython-capable hardware from USB vendor and
// product identifiers and discovers candidate serial ports on the host.
package board
