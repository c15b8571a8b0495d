package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hirossan4049/mpy-sdk/internal/pool"
	"github.com/hirossan4049/mpy-sdk/internal/task"
	"github.com/hirossan4049/mpy-sdk/logger"
	"github.com/hirossan4049/mpy-sdk/transport"
)

// tracebackMarker starts the error report MicroPython prints when executed
// code raises.
const tracebackMarker = "Traceback (most recent call last):"

// maxIdleBufferSize caps buffer growth from unsolicited device output while
// no command is pending (e.g. print statements from a running script).
const maxIdleBufferSize = 64 * 1024

// ExecResult is the outcome of a completed Execute call.
type ExecResult struct {
	// Output is the text the device printed, echo and prompts stripped,
	// surrounding whitespace trimmed.
	Output string
	// ErrOutput holds the traceback text when the executed code raised.
	ErrOutput string
	// ExitCode is 0 on clean execution, 1 when a traceback was detected.
	ExitCode int
	// Duration is the round-trip time from issue to prompt.
	Duration time.Duration
	// Timestamp is the time the command was issued.
	Timestamp time.Time
}

// cmdResult is the single-resolution result slot of a pending command.
type cmdResult struct {
	output string
	err    error
}

// pendingCommand is the one in-flight request. At most one exists per
// session; this is the central invariant that makes the channel logically
// half-duplex even though the transport is full-duplex.
type pendingCommand struct {
	text     string // verbatim wire form, used for echo stripping
	issuedAt time.Time
	resultCh chan cmdResult // buffered 1, written exactly once
}

// Session is the live relationship between the engine and one connected
// device. It exclusively owns its transport channel; no other component may
// write to it.
//
// All exported methods are safe for concurrent use, but commands themselves
// are strictly serialized: a second Execute while one is pending fails with
// ErrBusy.
type Session struct {
	id      string
	cfg     *SessionConfig
	logger  logger.Logger
	channel transport.Channel
	taskMgr *task.Manager

	pctx    context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	state   atomicState
	closing atomic.Bool

	// mu guards rb and pending. The byte-arrival handler and the timeout /
	// reset / disconnect paths are the only mutators, and they are mutually
	// exclusive through this lock, so a late chunk can never race a
	// concurrently firing deadline.
	mu      sync.Mutex
	rb      responseBuffer
	pending *pendingCommand

	metrics SessionMetrics
}

// NewSession creates a Session over the given channel.
//
// The channel must not be shared with any other consumer. The session does
// not touch it until Connect.
func NewSession(ctx context.Context, ch transport.Channel, cfg *SessionConfig) (*Session, error) {
	if ch == nil {
		return nil, errors.New("repl: channel is nil")
	}

	if cfg == nil {
		var err error
		cfg, err = NewSessionConfig()
		if err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		cfg:     cfg,
		logger:  cfg.logger.With("session_id", id[:8]),
		channel: ch,
		pctx:    ctx,
		taskMgr: task.NewManager(ctx, cfg.logger),
	}
	s.state.Set(Disconnected)

	return s, nil
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// State returns the current session state.
func (s *Session) State() SessionState { return s.state.Get() }

// Metrics returns the session's metric counters.
func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

// Connect opens the channel, starts the reader, and runs the initialization
// sequence that resynchronizes with a device that may already be mid-output
// from a previous session.
func (s *Session) Connect() error {
	if !s.state.ToConnecting() {
		return ErrAlreadyConnected
	}

	s.closing.Store(false)
	s.ctx, s.cancel = context.WithCancel(s.pctx)

	if err := s.channel.Open(); err != nil {
		s.state.ToDisconnected()

		return fmt.Errorf("%w: %s", ErrChannel, err)
	}

	if err := s.taskMgr.Start("reader", s.readerIteration); err != nil {
		_ = s.channel.Close()
		s.state.ToDisconnected()

		return err
	}

	if err := s.Initialize(); err != nil {
		s.teardown()

		return err
	}

	if !s.state.ToReady() {
		s.teardown()

		return fmt.Errorf("repl: unexpected state %s after connect", s.state.Get())
	}

	s.logger.Info("session connected")

	return nil
}

// Disconnect tears the session down. Any pending command is resolved with a
// channel error. Safe to call more than once.
func (s *Session) Disconnect() error {
	if s.state.Is(Disconnected) {
		return nil
	}

	s.closing.Store(true)

	s.mu.Lock()
	s.resolvePendingLocked(fmt.Errorf("%w: session disconnected", ErrChannel))
	s.rb.reset()
	s.mu.Unlock()

	s.teardown()
	s.logger.Info("session disconnected")

	return nil
}

// teardown stops tasks, closes the channel, and resets state.
func (s *Session) teardown() {
	s.closing.Store(true)
	s.taskMgr.Stop()

	if err := s.channel.Close(); err != nil {
		s.logger.Debug("channel close", "error", err)
	}

	s.taskMgr.Wait()

	if s.cancel != nil {
		s.cancel()
	}

	s.state.ToDisconnected()
}

// Initialize runs the resync sequence: interrupt any running code, wait for
// the device to settle, flush partial input with a bare line terminator, wait
// again, then clear the response buffer.
func (s *Session) Initialize() error {
	if s.state.Is(Disconnected) {
		return ErrNotConnected
	}

	if err := s.writeRaw([]byte{s.cfg.interruptByte}); err != nil {
		return err
	}
	s.settle(s.cfg.settleInterval)

	if err := s.writeRaw([]byte(s.cfg.lineTerminator)); err != nil {
		return err
	}
	s.settle(s.cfg.settleInterval)

	s.mu.Lock()
	s.rb.reset()
	s.mu.Unlock()

	return nil
}

// Execute sends a command and waits for the idle prompt or the deadline.
//
// A zero or negative timeout selects the configured default. Execute fails
// fast with ErrBusy while another command is pending, with ErrFaulted after
// an unrecovered timeout, and with ErrNotConnected on a session that is not
// connected. On timeout the session transitions to Faulted and the response
// buffer is cleared; Reset restores it to Ready.
func (s *Session) Execute(command string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = s.cfg.execTimeout
	}

	if !s.state.ToBusy() {
		switch s.state.Get() {
		case Busy:
			return nil, ErrBusy
		case Faulted:
			return nil, ErrFaulted
		default:
			return nil, ErrNotConnected
		}
	}

	wire := EncodeCommand(command)
	p := &pendingCommand{
		text:     wire,
		issuedAt: time.Now(),
		resultCh: make(chan cmdResult, 1),
	}

	s.mu.Lock()
	s.rb.reset()
	s.pending = p
	s.mu.Unlock()

	s.metrics.incCmdSendCount()
	s.metrics.incCmdInflight()

	if err := s.writeRaw([]byte(wire + s.cfg.lineTerminator)); err != nil {
		s.mu.Lock()
		if s.pending == p {
			s.pending = nil
			s.rb.reset()
		}
		s.mu.Unlock()
		s.metrics.decCmdInflight()

		return nil, err
	}

	s.logger.Debug("command issued", "command", wire, "timeout", timeout)

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case res := <-p.resultCh:
		s.metrics.decCmdInflight()

		return s.buildResult(p, res)

	case <-timer.C:
	}

	// Deadline hit; the reader may have resolved concurrently.
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
		s.rb.reset()
		s.mu.Unlock()

		s.metrics.decCmdInflight()
		s.metrics.incCmdTimeoutCount()
		s.state.ToFaulted()
		s.logger.Warn("command timeout", "command", wire, "timeout", timeout)

		return nil, fmt.Errorf("%w (deadline %v)", ErrCommandTimeout, timeout)
	}
	s.mu.Unlock()

	res := <-p.resultCh
	s.metrics.decCmdInflight()

	return s.buildResult(p, res)
}

// Reset forcibly returns the interpreter to its idle prompt by sending
// repeated interrupts, discards any pending command as aborted, clears the
// buffer, and returns the session to Ready.
//
// Reset is idempotent and safe to call from Faulted and Busy.
func (s *Session) Reset() error {
	if s.state.Is(Disconnected) {
		return ErrNotConnected
	}

	s.logger.Info("resetting session", "state", s.state.Get().String())
	s.metrics.incResetCount()

	s.mu.Lock()
	s.resolvePendingLocked(ErrAborted)
	s.mu.Unlock()

	for i := 0; i < s.cfg.resetInterrupts; i++ {
		if err := s.writeRaw([]byte{s.cfg.interruptByte}); err != nil {
			return err
		}
		s.settle(s.cfg.resetInterval)
	}

	s.settle(s.cfg.settleInterval)

	s.mu.Lock()
	s.rb.reset()
	s.mu.Unlock()

	if !s.state.ToReady() {
		return ErrNotConnected
	}

	return nil
}

// --- Reader ---

// readerIteration consumes one event from the channel. It is the single
// consumer of both the byte stream and the error stream.
func (s *Session) readerIteration() bool {
	select {
	case <-s.taskMgr.Context().Done():
		return false

	case chunk, ok := <-s.channel.Bytes():
		if !ok {
			if !s.closing.Load() {
				s.handleChannelFailure(fmt.Errorf("%w: byte stream ended", ErrChannel))
			}

			return false
		}

		s.handleBytes(chunk)

		return true

	case err := <-s.channel.Errors():
		s.handleChannelFailure(fmt.Errorf("%w: %s", ErrChannel, err))

		return false
	}
}

// handleBytes appends a chunk to the response buffer and resolves the
// pending command if the prompt marker has appeared.
func (s *Session) handleBytes(chunk []byte) {
	s.metrics.addBytesRead(len(chunk))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rb.write(chunk)

	p := s.pending
	if p == nil {
		// Unsolicited output outside any command. Bound the buffer; the
		// content is discarded on the next command anyway.
		if n := s.rb.len(); n > maxIdleBufferSize {
			s.metrics.addDroppedBytes(n)
			s.rb.reset()
			s.logger.Debug("discarded unsolicited output", "bytes", n)
		}

		return
	}

	front, trailing, ok := s.rb.splitAtMarker(s.cfg.promptMarker)
	if !ok {
		return
	}

	if trailing > 0 {
		// Output after the first prompt belongs to no command.
		s.metrics.addDroppedBytes(trailing)
		s.logger.Debug("dropped bytes after prompt", "bytes", trailing)
	}

	s.rb.reset()
	s.pending = nil
	s.state.ToReady()

	p.resultCh <- cmdResult{output: CleanOutput(front, p.text, s.cfg.promptMarker)}
}

// handleChannelFailure resolves any pending command with the transport error
// and faults the session.
func (s *Session) handleChannelFailure(err error) {
	s.logger.Error("channel failure", "error", err)

	s.mu.Lock()
	s.resolvePendingLocked(err)
	s.rb.reset()
	s.mu.Unlock()

	s.state.ToFaulted()
}

// resolvePendingLocked resolves the pending command with err, if one exists.
// Callers must hold s.mu.
func (s *Session) resolvePendingLocked(err error) {
	if s.pending == nil {
		return
	}

	p := s.pending
	s.pending = nil
	s.rb.reset()
	p.resultCh <- cmdResult{err: err}
}

// --- Helpers ---

func (s *Session) buildResult(p *pendingCommand, res cmdResult) (*ExecResult, error) {
	if res.err != nil {
		return nil, res.err
	}

	s.metrics.incCmdOKCount()

	result := &ExecResult{
		Output:    res.output,
		Duration:  time.Since(p.issuedAt),
		Timestamp: p.issuedAt,
	}

	if idx := strings.Index(res.output, tracebackMarker); idx >= 0 {
		result.Output = strings.TrimSpace(res.output[:idx])
		result.ErrOutput = strings.TrimSpace(res.output[idx:])
		result.ExitCode = 1
	}

	return result, nil
}

// writeRaw writes to the channel, accounting bytes and faulting the session
// on failure.
func (s *Session) writeRaw(p []byte) error {
	n, err := s.channel.Write(p)
	s.metrics.addBytesWritten(n)

	if err != nil {
		s.state.ToFaulted()

		return fmt.Errorf("%w: %s", ErrChannel, err)
	}

	return nil
}

// settle pauses for d, waking early if the session context is cancelled.
func (s *Session) settle(d time.Duration) {
	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
