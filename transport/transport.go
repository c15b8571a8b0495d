// Package transport abstracts the raw duplex byte stream a REPL session runs
// on top of.
//
// A Channel only needs to deliver bytes in both directions; it knows nothing
// about prompts, commands, or framing. The serial implementation drives a
// physical USB-serial port; Pipe provides a connected in-memory pair used by
// tests and simulators.
package transport

import "errors"

var (
	// ErrChannelClosed indicates a read or write on a closed channel.
	ErrChannelClosed = errors.New("transport: channel closed")

	// ErrNotOpen indicates an operation on a channel before Open.
	ErrNotOpen = errors.New("transport: channel not open")
)

// Channel is a raw duplex byte stream.
//
// Incoming bytes are delivered as chunks on the Bytes channel by a reader
// owned by the implementation. A transport-level failure is delivered once on
// the Errors channel and is terminal: after it, the Bytes channel is closed
// and the Channel must be discarded.
type Channel interface {
	// Open establishes the underlying stream and starts the reader.
	Open() error

	// Write sends p to the remote end.
	Write(p []byte) (int, error)

	// Bytes returns the stream of incoming byte chunks. The channel is
	// closed when the transport terminates.
	Bytes() <-chan []byte

	// Errors returns the stream of transport-level failures.
	Errors() <-chan error

	// Close tears the stream down. It is safe to call more than once.
	Close() error
}
