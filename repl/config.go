package repl

import (
	"errors"
	"fmt"
	"time"

	"github.com/hirossan4049/mpy-sdk/logger"
)

// Defaults for the MicroPython interactive console.
const (
	// DefaultPromptMarker is the literal idle-prompt string; its appearance
	// in the response stream is the sole completion signal.
	DefaultPromptMarker = ">>> "

	// DefaultLineTerminator submits a command to the interpreter.
	DefaultLineTerminator = "\r\n"

	// DefaultInterruptByte aborts running code (Ctrl-C).
	DefaultInterruptByte = 0x03

	// DefaultSettleInterval is the pause after an interrupt or flush during
	// initialization, giving the device time to print whatever it is going
	// to print.
	DefaultSettleInterval = 100 * time.Millisecond

	// DefaultExecTimeout applies to Execute calls with a zero timeout.
	DefaultExecTimeout = 5 * time.Second

	// DefaultResetInterrupts is the number of interrupt bytes sent by the
	// reset procedure. Three interrupts reliably break out of nested
	// long-running scripts.
	DefaultResetInterrupts = 3

	// DefaultResetInterval is the spacing between reset interrupts.
	DefaultResetInterval = 100 * time.Millisecond
)

// Validation limits.
const (
	MinSettleInterval = 10 * time.Millisecond
	MaxSettleInterval = 5 * time.Second

	MinExecTimeout = 50 * time.Millisecond
	MaxExecTimeout = 10 * time.Minute

	MaxResetInterrupts = 10
)

// SessionConfig holds all configuration for a REPL session.
type SessionConfig struct {
	promptMarker   string
	lineTerminator string
	interruptByte  byte

	settleInterval  time.Duration
	execTimeout     time.Duration
	resetInterrupts int
	resetInterval   time.Duration

	logger logger.Logger
}

// NewSessionConfig creates a session configuration with MicroPython console
// defaults, applying opts in order.
func NewSessionConfig(opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		promptMarker:    DefaultPromptMarker,
		lineTerminator:  DefaultLineTerminator,
		interruptByte:   DefaultInterruptByte,
		settleInterval:  DefaultSettleInterval,
		execTimeout:     DefaultExecTimeout,
		resetInterrupts: DefaultResetInterrupts,
		resetInterval:   DefaultResetInterval,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// PromptMarker returns the idle-prompt completion marker.
func (cfg *SessionConfig) PromptMarker() string { return cfg.promptMarker }

// LineTerminator returns the command line terminator.
func (cfg *SessionConfig) LineTerminator() string { return cfg.lineTerminator }

// InterruptByte returns the control byte that aborts running code.
func (cfg *SessionConfig) InterruptByte() byte { return cfg.interruptByte }

// SettleInterval returns the pause used by the initialization sequence.
func (cfg *SessionConfig) SettleInterval() time.Duration { return cfg.settleInterval }

// ExecTimeout returns the default per-command deadline.
func (cfg *SessionConfig) ExecTimeout() time.Duration { return cfg.execTimeout }

// ResetInterrupts returns the number of interrupts sent by Reset.
func (cfg *SessionConfig) ResetInterrupts() int { return cfg.resetInterrupts }

// ResetInterval returns the spacing between reset interrupts.
func (cfg *SessionConfig) ResetInterval() time.Duration { return cfg.resetInterval }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// --- SessionOption ---

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(*SessionConfig) error
}

type sessionOptFunc func(*SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithPromptMarker sets the idle-prompt marker string. It must be non-empty;
// an empty marker would match after every byte.
func WithPromptMarker(marker string) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if marker == "" {
			return errors.New("repl: prompt marker must not be empty")
		}
		cfg.promptMarker = marker

		return nil
	})
}

// WithLineTerminator sets the command line terminator.
func WithLineTerminator(term string) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if term == "" {
			return errors.New("repl: line terminator must not be empty")
		}
		cfg.lineTerminator = term

		return nil
	})
}

// WithInterruptByte sets the control byte used to abort running code.
func WithInterruptByte(b byte) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.interruptByte = b

		return nil
	})
}

// WithSettleInterval sets the pause after interrupt/flush during
// initialization. Range [MinSettleInterval, MaxSettleInterval].
func WithSettleInterval(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < MinSettleInterval || d > MaxSettleInterval {
			return fmt.Errorf("repl: settle interval %v out of range [%v, %v]",
				d, MinSettleInterval, MaxSettleInterval)
		}
		cfg.settleInterval = d

		return nil
	})
}

// WithExecTimeout sets the default per-command deadline.
// Range [MinExecTimeout, MaxExecTimeout].
func WithExecTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < MinExecTimeout || d > MaxExecTimeout {
			return fmt.Errorf("repl: exec timeout %v out of range [%v, %v]",
				d, MinExecTimeout, MaxExecTimeout)
		}
		cfg.execTimeout = d

		return nil
	})
}

// WithResetInterrupts sets how many interrupt bytes Reset sends.
// Range [1, MaxResetInterrupts].
func WithResetInterrupts(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < 1 || n > MaxResetInterrupts {
			return fmt.Errorf("repl: reset interrupt count %d out of range [1, %d]",
				n, MaxResetInterrupts)
		}
		cfg.resetInterrupts = n

		return nil
	})
}

// WithResetInterval sets the spacing between reset interrupts.
func WithResetInterval(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < MinSettleInterval || d > MaxSettleInterval {
			return fmt.Errorf("repl: reset interval %v out of range [%v, %v]",
				d, MinSettleInterval, MaxSettleInterval)
		}
		cfg.resetInterval = d

		return nil
	})
}

// WithSessionLogger sets the logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("repl: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
