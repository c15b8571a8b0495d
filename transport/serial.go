package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/hirossan4049/mpy-sdk/logger"
)

const (
	// DefaultBaudRate matches the MicroPython USB-serial console default.
	DefaultBaudRate = 115200

	// DefaultReadBufferSize is the size of the chunk buffer handed to each
	// port read.
	DefaultReadBufferSize = 4096

	// readPollTimeout bounds a single blocking port read so the reader can
	// observe Close in a timely fashion.
	readPollTimeout = 100 * time.Millisecond
)

// SerialOption is a functional option for configuring a SerialChannel.
type SerialOption func(*SerialChannel) error

// WithBaudRate sets the serial baud rate. Must be positive.
func WithBaudRate(baud int) SerialOption {
	return func(c *SerialChannel) error {
		if baud <= 0 {
			return fmt.Errorf("transport: baud rate %d must be positive", baud)
		}
		c.baudRate = baud

		return nil
	}
}

// WithReadBufferSize sets the per-read chunk buffer size.
func WithReadBufferSize(size int) SerialOption {
	return func(c *SerialChannel) error {
		if size < 64 {
			return fmt.Errorf("transport: read buffer size %d too small, minimum 64", size)
		}
		c.readBufSize = size

		return nil
	}
}

// WithSerialLogger sets the logger for the channel.
func WithSerialLogger(l logger.Logger) SerialOption {
	return func(c *SerialChannel) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		c.logger = l

		return nil
	}
}

// SerialChannel is a Channel backed by a local serial port (go.bug.st/serial).
type SerialChannel struct {
	path        string
	baudRate    int
	readBufSize int
	logger      logger.Logger

	mu     sync.Mutex
	port   serial.Port
	closed bool

	bytesCh chan []byte
	errCh   chan error
	closing chan struct{}
	done    chan struct{}
}

var _ Channel = (*SerialChannel)(nil)

// NewSerial creates a serial Channel for the port at path.
//
// The port is not opened until Open is called.
func NewSerial(path string, opts ...SerialOption) (*SerialChannel, error) {
	if path == "" {
		return nil, errors.New("transport: serial port path is empty")
	}

	c := &SerialChannel{
		path:        path,
		baudRate:    DefaultBaudRate,
		readBufSize: DefaultReadBufferSize,
		logger:      logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Open opens the serial port and starts the reader goroutine.
func (c *SerialChannel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: c.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(c.path, mode)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", c.path, err)
	}

	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		_ = port.Close()

		return fmt.Errorf("transport: set read timeout on %s: %w", c.path, err)
	}

	c.port = port
	c.closed = false
	c.bytesCh = make(chan []byte, 64)
	c.errCh = make(chan error, 1)
	c.closing = make(chan struct{})
	c.done = make(chan struct{})

	go c.readLoop(port)

	c.logger.Debug("serial channel opened", "path", c.path, "baud", c.baudRate)

	return nil
}

// Write sends p to the serial port.
func (c *SerialChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	port := c.port
	closed := c.closed
	c.mu.Unlock()

	if port == nil {
		return 0, ErrNotOpen
	}
	if closed {
		return 0, ErrChannelClosed
	}

	n, err := port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write %s: %w", c.path, err)
	}

	return n, nil
}

// Bytes returns the incoming chunk stream.
func (c *SerialChannel) Bytes() <-chan []byte { return c.bytesCh }

// Errors returns the transport failure stream.
func (c *SerialChannel) Errors() <-chan error { return c.errCh }

// Close closes the serial port and terminates the reader.
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	if c.closed || c.port == nil {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	port := c.port
	closing := c.closing
	done := c.done
	c.mu.Unlock()

	// Release a reader blocked on a full bytesCh before closing the port,
	// otherwise the done handshake below could wait forever once the
	// consumer has stopped draining.
	close(closing)

	err := port.Close()

	// Wait for the reader to drain out so bytesCh is closed exactly once.
	<-done

	c.mu.Lock()
	c.port = nil
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("transport: close %s: %w", c.path, err)
	}

	return nil
}

// readLoop reads chunks from the port and forwards them to bytesCh until the
// port is closed or fails.
func (c *SerialChannel) readLoop(port serial.Port) {
	defer func() {
		close(c.bytesCh)
		close(c.done)
	}()

	buf := make([]byte, c.readBufSize)

	for {
		n, err := port.Read(buf)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()

			if !closed {
				c.logger.Error("serial read failed", "path", c.path, "error", err)
				select {
				case c.errCh <- fmt.Errorf("transport: read %s: %w", c.path, err):
				default:
				}
			}

			return
		}

		if n == 0 {
			// Read timeout while idle.
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		select {
		case c.bytesCh <- chunk:
		case <-c.closing:
			return
		}
	}
}
