package device

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hirossan4049/mpy-sdk/logger"
	"github.com/hirossan4049/mpy-sdk/repl"
)

const (
	// DefaultChunkSize is the number of decoded payload bytes per write
	// chunk. The wire carries twice as many characters after hex encoding.
	DefaultChunkSize = 2048

	// MinChunkSize keeps chunks large enough to amortize the four-command
	// round-trip cost per chunk.
	MinChunkSize = 16

	// MaxChunkSize bounds a single write line; beyond this the device-side
	// line buffer and the command timeout become the limiting factors.
	MaxChunkSize = 1 << 20
)

// Executor is the subset of the REPL session engine the client needs.
// *repl.Session satisfies it.
type Executor interface {
	Execute(command string, timeout time.Duration) (*repl.ExecResult, error)
}

// Client drives high-level file and identity operations over an Executor.
//
// The client issues only fully-synchronized round trips; it never writes to
// the underlying channel itself.
type Client struct {
	exec      Executor
	logger    logger.Logger
	chunkSize int
	opTimeout time.Duration
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client) error

// WithChunkSize sets the decoded payload bytes per write chunk.
// Range [MinChunkSize, MaxChunkSize].
func WithChunkSize(n int) ClientOption {
	return func(c *Client) error {
		if n < MinChunkSize || n > MaxChunkSize {
			return fmt.Errorf("device: chunk size %d out of range [%d, %d]", n, MinChunkSize, MaxChunkSize)
		}
		c.chunkSize = n

		return nil
	}
}

// WithOpTimeout sets the per-primitive command timeout. Zero selects the
// session default.
func WithOpTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d < 0 {
			return errors.New("device: op timeout must not be negative")
		}
		c.opTimeout = d

		return nil
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *Client) error {
		if l == nil {
			return errors.New("device: logger must not be nil")
		}
		c.logger = l

		return nil
	}
}

// NewClient creates a Client over the given executor.
func NewClient(exec Executor, opts ...ClientOption) (*Client, error) {
	if exec == nil {
		return nil, errors.New("device: executor is nil")
	}

	c := &Client{
		exec:      exec,
		logger:    logger.GetLogger(),
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// run executes one command and classifies remote failures.
func (c *Client) run(command string) (*repl.ExecResult, error) {
	res, err := c.exec.Execute(command, c.opTimeout)
	if err != nil {
		return nil, err
	}

	if res.ExitCode != 0 {
		reason := lastLine(res.ErrOutput)

		if strings.Contains(res.ErrOutput, "ENOENT") || strings.Contains(res.ErrOutput, "[Errno 2]") {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, reason)
		}

		return nil, fmt.Errorf("%w: %s", ErrRemote, reason)
	}

	return res, nil
}

// lastLine returns the last non-empty line of text.
func lastLine(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
